package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
)

// ConversationContext carries auxiliary fields for one chat call, such as
// workspace_path, os, shell or open_files. It is rendered into the system
// prompt of that call only.
type ConversationContext map[string]any

// DefaultContext describes the local machine and working directory.
func DefaultContext() ConversationContext {
	cc := ConversationContext{
		"os":       runtime.GOOS,
		"platform": runtime.GOOS + "/" + runtime.GOARCH,
	}
	if wd, err := os.Getwd(); err == nil {
		cc["workspace_path"] = wd
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		cc["shell"] = sh
	}
	return cc
}

// Workspace returns workspace_path when set, else fallback.
func (cc ConversationContext) Workspace(fallback string) string {
	if s, ok := cc["workspace_path"].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

// render lists the fields as "key: value" lines in key order.
func (cc ConversationContext) render() string {
	if len(cc) == 0 {
		return ""
	}
	keys := make([]string, 0, len(cc))
	for k := range cc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", k, contextValue(cc[k]))
	}
	return sb.String()
}

func contextValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case fmt.Stringer:
		return x.String()
	case nil:
		return ""
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

// systemPrompt composes the base prompt with the per-call context.
func (a *Agent) systemPrompt(cc ConversationContext) string {
	var sb strings.Builder
	sb.WriteString(a.cfg.SystemPrompt)
	if ctx := cc.render(); ctx != "" {
		sb.WriteString("\n\n<context>\n")
		sb.WriteString(ctx)
		sb.WriteString("</context>")
	}
	return sb.String()
}
