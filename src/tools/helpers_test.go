package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type permitFunc func(op string, details map[string]any) bool

func (f permitFunc) RequestPermission(op string, details map[string]any) bool { return f(op, details) }

func denyAll() Permitter { return permitFunc(func(string, map[string]any) bool { return false }) }

func invoke(t *testing.T, tool Tool, ws string, args map[string]any) (Response, error) {
	t.Helper()
	return tool.Invoke(context.Background(), Request{Workspace: ws, Arguments: args})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func readBack(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
