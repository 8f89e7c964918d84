package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Protocol-Lattice/cursor-agent/src/models"
	"github.com/Protocol-Lattice/cursor-agent/src/tools"
)

// RegisterTool adds a tool to the agent's catalog. Names are unique,
// case-insensitively.
func (a *Agent) RegisterTool(tool tools.Tool) error {
	return a.catalog.Register(tool)
}

// UnregisterTool removes a tool, reporting whether it was registered.
func (a *Agent) UnregisterTool(name string) bool {
	return a.catalog.Unregister(name)
}

// RegisterDefaultTools adds the built-in coding tools. Tools already
// registered under the same name are kept, so repeated calls are harmless.
// They are offered to the provider only when the model supports tool calls.
func (a *Agent) RegisterDefaultTools() error {
	for _, t := range tools.Defaults(a.defaults) {
		if a.catalog.Has(t.Spec().Name) {
			continue
		}
		if err := a.catalog.Register(t); err != nil {
			return err
		}
	}
	if !a.cfg.Capabilities.Tools {
		a.log.Info().Msg("model does not support tool calls; tools stay registered but are not offered")
	}
	return nil
}

// ImportUTCPTools registers the tools client exposes for query.
func (a *Agent) ImportUTCPTools(client tools.UTCPClient, query string, limit int) (int, error) {
	found, err := tools.FromUTCP(client, query, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range found {
		if err := a.catalog.Register(t); err != nil {
			a.log.Warn().Err(err).Msg("skipping utcp tool")
			continue
		}
		n++
	}
	return n, nil
}

// Tools returns the registered tools in registration order.
func (a *Agent) Tools() []tools.Tool {
	return a.catalog.Tools()
}

// ToolSpecs returns the registered tool specifications in registration order.
func (a *Agent) ToolSpecs() []tools.Spec {
	return a.catalog.Specs()
}

func (a *Agent) toolDefinitions() []models.ToolDefinition {
	specs := a.catalog.Specs()
	if len(specs) == 0 {
		return nil
	}
	defs := make([]models.ToolDefinition, 0, len(specs))
	for _, s := range specs {
		defs = append(defs, models.ToolDefinition{Name: s.Name, Description: s.Description, Parameters: s.InputSchema})
	}
	return defs
}

// directToolCall recognises "tool:<name> <arguments>".
func directToolCall(message string) (name string, args map[string]any, ok bool) {
	trimmed := strings.TrimSpace(message)
	if !strings.HasPrefix(strings.ToLower(trimmed), "tool:") {
		return "", nil, false
	}
	name, raw := splitCommand(strings.TrimSpace(trimmed[len("tool:"):]))
	if name == "" {
		return "", nil, false
	}
	return name, parseToolArguments(raw), true
}

// invokeDirect runs a tool on the user's behalf. The exchange is not added
// to the history.
func (a *Agent) invokeDirect(ctx context.Context, name string, args map[string]any, cc ConversationContext) (*Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, result := a.runTool(ctx, models.ToolCall{Name: name, Arguments: args}, cc.Workspace(a.workspace))
	return &Response{Message: result.Content, ToolCalls: []ToolCall{record}}, nil
}

func splitCommand(payload string) (name string, args string) {
	parts := strings.Fields(payload)
	if len(parts) == 0 {
		return "", ""
	}
	name = parts[0]
	if len(payload) > len(name) {
		args = strings.TrimSpace(payload[len(name):])
	}
	return name, args
}

// parseToolArguments accepts a JSON object, a JSON array (as "items") or
// free text (as "input").
func parseToolArguments(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	if strings.HasPrefix(raw, "{") {
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			return payload
		}
	}
	if strings.HasPrefix(raw, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return map[string]any{"items": arr}
		}
	}
	return map[string]any{"input": raw}
}
