package permissions

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		op   string
		cmd  string
		want Status
	}{
		{"default needs confirmation", DefaultOptions(), OpEditFile, "", NeedsConfirmation},
		{"denylist wins", Options{YoloMode: true, CommandDenylist: []string{"rm -rf"}}, OpRunTerminalCommand, "rm -rf /tmp/x", Denied},
		{"denylist outside yolo", Options{CommandDenylist: []string{"sudo"}}, OpRunTerminalCommand, "sudo ls", Denied},
		{"delete protected in yolo", Options{YoloMode: true, DeleteFileProtection: true}, OpDeleteFile, "", NeedsConfirmation},
		{"delete unprotected in yolo", Options{YoloMode: true}, OpDeleteFile, "", Granted},
		{"yolo grants edits", Options{YoloMode: true}, OpEditFile, "", Granted},
		{"yolo without allowlist", Options{YoloMode: true}, OpRunTerminalCommand, "make test", Granted},
		{"yolo allowlisted", Options{YoloMode: true, CommandAllowlist: []string{"go test", "ls"}}, OpRunTerminalCommand, "go test ./...", Granted},
		{"yolo not allowlisted", Options{YoloMode: true, CommandAllowlist: []string{"ls"}}, OpRunTerminalCommand, "curl example.com", NeedsConfirmation},
		{"yolo allowlist ignores other ops", Options{YoloMode: true, CommandAllowlist: []string{"ls"}}, OpCreateFile, "", Granted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager(tc.opts)
			got := m.Evaluate(Request{Operation: tc.op, Details: map[string]any{"command": tc.cmd}})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequestPermissionUsesCallback(t *testing.T) {
	var seen []Request
	m := NewManager(DefaultOptions(), WithCallback(func(r Request) Status {
		seen = append(seen, r)
		if r.Operation == OpCreateFile {
			return Granted
		}
		return Denied
	}))

	assert.True(t, m.RequestPermission(OpCreateFile, map[string]any{"file_path": "a"}))
	assert.False(t, m.RequestPermission(OpEditFile, map[string]any{"target_file": "a"}))
	assert.Len(t, seen, 2)
}

func TestRequestPermissionDeniedSkipsCallback(t *testing.T) {
	called := false
	m := NewManager(Options{CommandDenylist: []string{"shutdown"}}, WithCallback(func(Request) Status {
		called = true
		return Granted
	}))
	assert.False(t, m.RequestPermission(OpRunTerminalCommand, map[string]any{"command": "shutdown now"}))
	assert.False(t, called)
}

func TestRequestPermissionPrompt(t *testing.T) {
	var out bytes.Buffer
	m := NewManager(DefaultOptions(), WithPrompt(strings.NewReader("maybe\nYES\n"), &out))

	assert.True(t, m.RequestPermission(OpEditFile, map[string]any{"target_file": "main.go"}))
	assert.Contains(t, out.String(), "Permission Request: edit_file")
	assert.Contains(t, out.String(), "Please enter 'y' or 'n'")
}

func TestRequestPermissionPromptEOFDenies(t *testing.T) {
	m := NewManager(DefaultOptions(), WithPrompt(strings.NewReader(""), nil))
	assert.False(t, m.RequestPermission(OpEditFile, nil))
}

func TestRequestPermissionNoPromptDenies(t *testing.T) {
	m := NewManager(DefaultOptions())
	assert.False(t, m.RequestPermission(OpCreateFile, nil))
}

func TestYoloPromptIsShown(t *testing.T) {
	var out bytes.Buffer
	NewManager(Options{YoloMode: true, YoloPrompt: "careful!"}, WithPrompt(nil, &out))
	assert.Contains(t, out.String(), "careful!")

	out.Reset()
	NewManager(Options{YoloMode: true}, WithPrompt(nil, &out))
	assert.Contains(t, out.String(), DefaultYoloPrompt)
}
