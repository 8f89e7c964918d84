package tools

import (
	"context"
	"fmt"

	utcptools "github.com/universal-tool-calling-protocol/go-utcp/src/tools"
)

// UTCPClient is the subset of a UTCP client needed to import its tools.
type UTCPClient interface {
	SearchTools(query string, limit int) ([]utcptools.Tool, error)
	CallTool(ctx context.Context, toolName string, args map[string]any) (any, error)
}

// utcpTool forwards invocations to a UTCP client.
type utcpTool struct {
	client UTCPClient
	spec   Spec
	remote string
}

// FromUTCP discovers tools on client matching query (empty for all, up to
// limit) and returns them as local tools. Dots in UTCP names become
// underscores, as most vendors reject dotted function names.
func FromUTCP(client UTCPClient, query string, limit int) ([]Tool, error) {
	if client == nil {
		return nil, fmt.Errorf("utcp client is nil")
	}
	found, err := client.SearchTools(query, limit)
	if err != nil {
		return nil, fmt.Errorf("utcp search: %w", err)
	}
	out := make([]Tool, 0, len(found))
	for _, t := range found {
		schema := object(t.Inputs.Properties, t.Inputs.Required...)
		out = append(out, &utcpTool{
			client: client,
			remote: t.Name,
			spec:   Spec{Name: localName(t.Name), Description: t.Description, InputSchema: schema},
		})
	}
	return out, nil
}

func (t *utcpTool) Spec() Spec { return t.spec }

func (t *utcpTool) Invoke(ctx context.Context, req Request) (Response, error) {
	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}
	out, err := t.client.CallTool(ctx, t.remote, args)
	if err != nil {
		return Response{}, err
	}
	if s, ok := out.(string); ok {
		return Response{Content: s, Result: s}, nil
	}
	return JSON(out)
}

func localName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '.' {
			b[i] = '_'
		}
	}
	return string(b)
}
