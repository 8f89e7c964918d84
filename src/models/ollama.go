package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	ollama "github.com/ollama/ollama/api"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

type ollamaProvider struct {
	client *ollama.Client
	host   string
	log    *logging.Logger
}

func newOllamaProvider(host string, hc *http.Client, log *logging.Logger) (*ollamaProvider, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &ollamaProvider{client: ollama.NewClient(u, hc), host: host, log: log}, nil
}

func (p *ollamaProvider) Name() string { return string(KindOllama) }

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	stream := false
	creq := &ollama.ChatRequest{
		Model:    req.Model,
		Messages: toOllamaMessages(req.System, req.Messages),
		Stream:   &stream,
		Options:  map[string]any{},
	}
	if req.Temperature != nil {
		creq.Options["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		creq.Options["num_predict"] = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		tools, err := toOllamaTools(req.Tools)
		if err != nil {
			return nil, err
		}
		creq.Tools = tools
	}

	p.log.Debug().Str("model", req.Model).Str("host", p.host).Int("messages", len(creq.Messages)).Int("tools", len(creq.Tools)).Msg("api/chat")

	var (
		text strings.Builder
		last ollama.ChatResponse
		out  ChatResponse
	)
	err := p.client.Chat(ctx, creq, func(cr ollama.ChatResponse) error {
		text.WriteString(cr.Message.Content)
		for _, tc := range cr.Message.ToolCalls {
			call, err := fromOllamaToolCall(tc)
			if err != nil {
				return err
			}
			out.ToolCalls = append(out.ToolCalls, call)
		}
		last = cr
		return nil
	})
	if err != nil {
		return nil, wrapProviderError(p.Name(), err)
	}

	out.Content = text.String()
	out.StopReason = last.DoneReason
	out.Usage = Usage{InputTokens: last.PromptEvalCount, OutputTokens: last.EvalCount}
	return &out, nil
}

func toOllamaMessages(system string, msgs []Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(msgs)+1)
	if system != "" {
		out = append(out, ollama.Message{Role: "system", Content: system})
	}
	for _, m := range msgs {
		om := ollama.Message{Role: string(m.Role), Content: m.Content}
		switch m.Role {
		case RoleTool:
			om.ToolName = m.ToolName
		case RoleAssistant:
			for _, tc := range m.ToolCalls {
				call, err := toOllamaToolCall(tc)
				if err == nil {
					om.ToolCalls = append(om.ToolCalls, call)
				}
			}
		default:
			var notes []string
			for _, img := range m.Images {
				if sanitizeForOllama(img.MIME) == "" || len(img.Data) == 0 {
					notes = append(notes, imagePlaceholder(img))
					continue
				}
				om.Images = append(om.Images, ollama.ImageData(img.Data))
			}
			om.Content = withImageNotes(m.Content, notes)
		}
		out = append(out, om)
	}
	return out
}

// The tool types below go through JSON so the adapter does not depend on the
// exact Go shape of the api package's schema and argument types.

func toOllamaTools(defs []ToolDefinition) (ollama.Tools, error) {
	type fn struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	}
	type tool struct {
		Type     string `json:"type"`
		Function fn     `json:"function"`
	}
	wire := make([]tool, 0, len(defs))
	for _, d := range defs {
		wire = append(wire, tool{Type: "function", Function: fn{Name: d.Name, Description: d.Description, Parameters: d.Parameters}})
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode ollama tools: %w", err)
	}
	var out ollama.Tools
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode ollama tools: %w", err)
	}
	return out, nil
}

func toOllamaToolCall(tc ToolCall) (ollama.ToolCall, error) {
	args := tc.Arguments
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(map[string]any{
		"function": map[string]any{"name": tc.Name, "arguments": args},
	})
	if err != nil {
		return ollama.ToolCall{}, err
	}
	var out ollama.ToolCall
	err = json.Unmarshal(raw, &out)
	return out, err
}

func fromOllamaToolCall(tc ollama.ToolCall) (ToolCall, error) {
	raw, err := json.Marshal(tc.Function.Arguments)
	if err != nil {
		return ToolCall{}, fmt.Errorf("encode tool arguments: %w", err)
	}
	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return ToolCall{}, fmt.Errorf("decode tool arguments: %w", err)
	}
	return ToolCall{ID: uuid.NewString(), Name: tc.Function.Name, Arguments: args}, nil
}

// OllamaModel describes a locally pulled model.
type OllamaModel struct {
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	ParameterSize string    `json:"parameter_size,omitempty"`
	Family        string    `json:"family,omitempty"`
	ModifiedAt    time.Time `json:"modified_at"`
	Capabilities  Capabilities
}

// ListOllamaModels returns the models pulled on the Ollama server at host
// (empty means $OLLAMA_HOST or the local default).
func ListOllamaModels(ctx context.Context, host string, hc *http.Client) ([]OllamaModel, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	p, err := newOllamaProvider(OllamaHost(host), hc, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, wrapProviderError(p.Name(), err)
	}
	out := make([]OllamaModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, OllamaModel{
			Name:          m.Name,
			Size:          m.Size,
			ParameterSize: m.Details.ParameterSize,
			Family:        m.Details.Family,
			ModifiedAt:    m.ModifiedAt,
			Capabilities:  CapabilitiesFor(KindOllama, m.Name),
		})
	}
	return out, nil
}
