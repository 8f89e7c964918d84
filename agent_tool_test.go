package agent

import (
	"context"
	"testing"

	utcp "github.com/universal-tool-calling-protocol/go-utcp"
	"github.com/universal-tool-calling-protocol/go-utcp/src/providers/base"
	utcptools "github.com/universal-tool-calling-protocol/go-utcp/src/tools"

	"github.com/Protocol-Lattice/cursor-agent/src/models"
)

func TestAgent_AsUTCPTool(t *testing.T) {
	a := newTestAgent(t, "gpt-4o", models.NewDummyProvider("ok:"))

	tool := a.AsUTCPTool("local.coder", "desc")
	if tool.Name != "local.coder" {
		t.Fatalf("expected tool name local.coder, got %q", tool.Name)
	}
	if tool.Provider == nil || tool.Provider.Type() != base.ProviderCLI {
		t.Fatalf("expected CLI provider, got %#v", tool.Provider)
	}

	result, err := tool.Handler(nil, map[string]interface{}{
		"instruction": "handle this",
		"context":     map[string]any{"os": "plan9"},
	})
	if err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if resp, _ := result["response"].(string); resp != "ok: handle this" {
		t.Fatalf("unexpected response %q", resp)
	}
}

func TestAgent_AsUTCPTool_ValidatesInstruction(t *testing.T) {
	a := newTestAgent(t, "gpt-4o", models.NewDummyProvider(""))

	tool := a.AsUTCPTool("local.coder", "desc")
	if _, err := tool.Handler(nil, map[string]interface{}{}); err == nil {
		t.Fatalf("expected error for missing instruction")
	}
}

func TestAgent_RegisterAsUTCPProvider(t *testing.T) {
	ctx := context.Background()
	a := newTestAgent(t, "gpt-4o", models.NewDummyProvider("ok:"))

	client, err := utcp.NewUTCPClient(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("failed to create utcp client: %v", err)
	}
	if err := a.RegisterAsUTCPProvider(ctx, client, "local.coder", "desc"); err != nil {
		t.Fatalf("register as utcp provider: %v", err)
	}

	out, err := client.CallTool(ctx, "local.coder", map[string]any{"instruction": "ping"})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	result, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %#v", out)
	}
	if resp, _ := result["response"].(string); resp != "ok: ping" {
		t.Fatalf("unexpected response %q", resp)
	}

	second := newTestAgent(t, "gpt-4o", models.NewDummyProvider(""))
	if err := second.RegisterAsUTCPProvider(ctx, client, "remote.coder", "desc"); err != nil {
		t.Fatalf("register second provider: %v", err)
	}
	if _, err := client.CallTool(ctx, "remote.coder", map[string]any{}); err == nil {
		t.Fatalf("expected instruction error through the transport")
	}

	if err := a.RegisterAsUTCPProvider(ctx, nil, "x", ""); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

type stubUTCPClient struct {
	found []utcptools.Tool
	calls []string
}

func (s *stubUTCPClient) SearchTools(string, int) ([]utcptools.Tool, error) { return s.found, nil }

func (s *stubUTCPClient) CallTool(_ context.Context, name string, args map[string]any) (any, error) {
	s.calls = append(s.calls, name)
	return "sunny in " + args["city"].(string), nil
}

func TestImportUTCPToolsFeedsToolLoop(t *testing.T) {
	client := &stubUTCPClient{found: []utcptools.Tool{
		{Name: "weather.now", Description: "Current weather", Inputs: utcptools.ToolInputOutputSchema{Type: "object"}},
		{Name: "weather.now", Description: "duplicate"},
	}}
	dummy := models.NewDummyProvider("",
		toolCallResponse("c1", "weather_now", map[string]any{"city": "Oslo"}),
		models.ChatResponse{Content: "It is sunny."},
	)
	a := newTestAgent(t, "gpt-4o", dummy)

	n, err := a.ImportUTCPTools(client, "weather", 5)
	if err != nil || n != 1 {
		t.Fatalf("ImportUTCPTools = %d, %v", n, err)
	}
	resp, err := a.Chat(context.Background(), "weather in Oslo?", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(client.calls) != 1 || client.calls[0] != "weather.now" {
		t.Fatalf("unexpected remote calls %v", client.calls)
	}
	if resp.ToolCalls[0].Result != "sunny in Oslo" {
		t.Fatalf("unexpected tool result %#v", resp.ToolCalls[0].Result)
	}
}
