package models

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

const anthropicDefaultMaxTokens = 4096

type anthropicProvider struct {
	client anthropic.Client
	log    *logging.Logger
}

func newAnthropicProvider(apiKey, baseURL string, hc *http.Client, log *logging.Logger) *anthropicProvider {
	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(apiKey),
		anthropicopt.WithHTTPClient(hc),
		anthropicopt.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(baseURL))
	}
	return &anthropicProvider{client: anthropic.NewClient(opts...), log: log}
}

func (p *anthropicProvider) Name() string { return string(KindAnthropic) }

func (p *anthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: toAnthropicTool(t)})
	}

	p.log.Debug().Str("model", req.Model).Int("messages", len(params.Messages)).Int("tools", len(params.Tools)).Msg("messages.create")
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapProviderError(p.Name(), err)
	}

	out := &ChatResponse{
		StopReason: string(msg.StopReason),
		Usage:      Usage{InputTokens: int(msg.Usage.InputTokens), OutputTokens: int(msg.Usage.OutputTokens)},
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					return nil, &ProviderError{Provider: p.Name(), Message: "malformed tool input for " + b.Name, Err: err}
				}
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}
	out.Content = text.String()
	return out, nil
}

// toAnthropicMessages folds consecutive tool results into one user turn, as
// the Messages API requires results to follow their tool_use turn directly.
func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	var (
		out     []anthropic.MessageParam
		results []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleTool:
			results = append(results, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			flush()
			var (
				blocks []anthropic.ContentBlockParamUnion
				notes  []string
			)
			for _, img := range m.Images {
				mt := sanitizeForAnthropic(img.MIME)
				if mt == "" || len(img.Data) == 0 {
					notes = append(notes, imagePlaceholder(img))
					continue
				}
				blocks = append(blocks, anthropic.NewImageBlockBase64(mt, base64.StdEncoding.EncodeToString(img.Data)))
			}
			if text := withImageNotes(m.Content, notes); text != "" || len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	flush()
	return out
}

func toAnthropicTool(t ToolDefinition) *anthropic.ToolParam {
	tp := &anthropic.ToolParam{
		Name: t.Name,
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: t.Parameters["properties"],
			Required:   stringSlice(t.Parameters["required"]),
		},
	}
	if t.Description != "" {
		tp.Description = anthropic.String(t.Description)
	}
	return tp
}

// stringSlice accepts []string or []any of strings, as JSON schemas built in
// code and decoded from JSON differ.
func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
