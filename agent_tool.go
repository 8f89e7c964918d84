package agent

import (
	"context"
	"fmt"
	"strings"

	utcp "github.com/universal-tool-calling-protocol/go-utcp"
	"github.com/universal-tool-calling-protocol/go-utcp/src/providers/base"
	"github.com/universal-tool-calling-protocol/go-utcp/src/providers/cli"
	"github.com/universal-tool-calling-protocol/go-utcp/src/repository"
	utcptools "github.com/universal-tool-calling-protocol/go-utcp/src/tools"
	"github.com/universal-tool-calling-protocol/go-utcp/src/transports"
)

// agentCLITransport serves in-process agent tools under the CLI provider
// type and delegates everything else to the transport it replaced.
type agentCLITransport struct {
	inner repository.ClientTransport
	tools map[string][]utcptools.Tool
	// calls carries the context-aware entry point per provider; the UTCP
	// handler signature has no context.Context.
	calls map[string]func(context.Context, map[string]any) (map[string]any, error)
}

func (t *agentCLITransport) RegisterToolProvider(ctx context.Context, prov base.Provider) ([]utcptools.Tool, error) {
	p, ok := prov.(*cli.CliProvider)
	if !ok {
		if t.inner != nil {
			return t.inner.RegisterToolProvider(ctx, prov)
		}
		return nil, fmt.Errorf("unsupported provider type %T", prov)
	}
	list, ok := t.tools[p.Name]
	if !ok {
		if t.inner != nil {
			return t.inner.RegisterToolProvider(ctx, prov)
		}
		return nil, fmt.Errorf("agent tools not found for provider %s", p.Name)
	}
	return append([]utcptools.Tool(nil), list...), nil
}

func (t *agentCLITransport) DeregisterToolProvider(ctx context.Context, prov base.Provider) error {
	if p, ok := prov.(*cli.CliProvider); ok {
		if _, ok := t.tools[p.Name]; ok {
			delete(t.tools, p.Name)
			delete(t.calls, p.Name)
			return nil
		}
	}
	if t.inner != nil {
		return t.inner.DeregisterToolProvider(ctx, prov)
	}
	return nil
}

func (t *agentCLITransport) CallTool(ctx context.Context, toolName string, args map[string]any, prov base.Provider, l *string) (any, error) {
	if p, ok := prov.(*cli.CliProvider); ok {
		for _, tool := range t.tools[p.Name] {
			if tool.Name != toolName && !strings.HasSuffix(tool.Name, "."+toolName) {
				continue
			}
			var (
				out map[string]any
				err error
			)
			if call, ok := t.calls[p.Name]; ok {
				out, err = call(ctx, args)
			} else if tool.Handler != nil {
				out, err = tool.Handler(nil, args)
			} else {
				return nil, fmt.Errorf("tool %s has no handler", toolName)
			}
			if err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	if t.inner != nil {
		return t.inner.CallTool(ctx, toolName, args, prov, l)
	}
	return nil, fmt.Errorf("tool %s not found", toolName)
}

func (t *agentCLITransport) CallToolStream(ctx context.Context, toolName string, args map[string]any, prov base.Provider) (transports.StreamResult, error) {
	if p, ok := prov.(*cli.CliProvider); ok {
		if _, ok := t.tools[p.Name]; ok {
			return nil, fmt.Errorf("streaming not supported for tool %s (provider %s)", toolName, p.Name)
		}
	}
	if t.inner != nil {
		return t.inner.CallToolStream(ctx, toolName, args, prov)
	}
	return nil, fmt.Errorf("unsupported provider type %T", prov)
}

// utcpProviderName is the part of a dotted tool name before the first dot.
func utcpProviderName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// AsUTCPTool exposes the agent as a UTCP tool with an in-process handler.
// The result carries response and tool_calls. The handler runs without a
// deadline; RegisterAsUTCPProvider routes calls with the caller's context.
func (a *Agent) AsUTCPTool(name, description string) utcptools.Tool {
	return utcptools.Tool{
		Name:        name,
		Description: description,
		Provider: &base.BaseProvider{
			Name:         utcpProviderName(name),
			ProviderType: base.ProviderCLI, // in-process handler, no remote transport
		},
		Inputs: utcptools.ToolInputOutputSchema{
			Type: "object",
			Properties: map[string]any{
				"instruction": map[string]any{
					"type":        "string",
					"description": "The instruction or question for the agent.",
				},
				"context": map[string]any{
					"type":        "object",
					"description": "Optional conversation context such as workspace_path.",
				},
			},
			Required: []string{"instruction"},
		},
		Outputs: utcptools.ToolInputOutputSchema{
			Type: "object",
			Properties: map[string]any{
				"response":   map[string]any{"type": "string"},
				"tool_calls": map[string]any{"type": "array"},
			},
		},
		Handler: func(_ map[string]any, inputs map[string]any) (map[string]any, error) {
			return a.callAsTool(context.Background(), inputs)
		},
	}
}

// callAsTool runs one agent turn for a UTCP caller. Inputs: instruction
// (required) and context (optional object, used as the ConversationContext).
func (a *Agent) callAsTool(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	instruction, ok := inputs["instruction"].(string)
	if !ok || strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("missing or invalid 'instruction'")
	}
	var cc ConversationContext
	if raw, ok := inputs["context"].(map[string]any); ok {
		cc = ConversationContext(raw)
	}
	resp, err := a.Chat(ctx, instruction, cc)
	if err != nil {
		return nil, err
	}
	return map[string]any{"response": resp.Message, "tool_calls": resp.ToolCalls}, nil
}

// RegisterAsUTCPProvider registers the agent as a UTCP tool on client. It
// installs an in-process transport for the CLI provider type that routes
// CallTool straight to Chat.
func (a *Agent) RegisterAsUTCPProvider(ctx context.Context, client utcp.UtcpClientInterface, name, description string) error {
	if client == nil {
		return fmt.Errorf("utcp client is nil")
	}

	tool := a.AsUTCPTool(name, description)
	tp := &cli.CliProvider{
		BaseProvider: base.BaseProvider{
			Name:         utcpProviderName(name),
			ProviderType: base.ProviderCLI,
		},
	}

	transportsMap := client.GetTransports()
	if transportsMap == nil {
		return fmt.Errorf("utcp client transports map is nil")
	}
	existing := transportsMap[string(base.ProviderCLI)]
	shim, ok := existing.(*agentCLITransport)
	if !ok {
		shim = &agentCLITransport{inner: existing}
		transportsMap[string(base.ProviderCLI)] = shim
	}
	if shim.tools == nil {
		shim.tools = make(map[string][]utcptools.Tool)
	}
	if shim.calls == nil {
		shim.calls = make(map[string]func(context.Context, map[string]any) (map[string]any, error))
	}
	shim.tools[tp.Name] = []utcptools.Tool{tool}
	shim.calls[tp.Name] = a.callAsTool

	_, err := client.RegisterToolProvider(ctx, tp)
	return err
}
