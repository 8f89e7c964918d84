package models

import (
	"context"
	"fmt"
	"strings"
	"sync"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

// geminiProvider creates its client lazily so construction stays offline.
type geminiProvider struct {
	apiKey   string
	endpoint string
	log      *logging.Logger

	mu     sync.Mutex
	client *genai.Client
}

func newGeminiProvider(apiKey, endpoint string, log *logging.Logger) *geminiProvider {
	return &geminiProvider{apiKey: apiKey, endpoint: endpoint, log: log}
}

func (p *geminiProvider) Name() string { return string(KindGemini) }

func (p *geminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	if p.apiKey == "" {
		return nil, &ProviderError{Provider: p.Name(), Message: "missing " + EnvGoogleKey + " or " + EnvGeminiKey}
	}
	opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	c, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, wrapProviderError(p.Name(), err)
	}
	p.client = c
	return c, nil
}

// Close releases the underlying client, if one was created.
func (p *geminiProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *geminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(req.Model)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	contents := toGeminiContents(req.Messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini: no messages to send")
	}
	cs := model.StartChat()
	cs.History = contents[:len(contents)-1]

	p.log.Debug().Str("model", req.Model).Int("messages", len(contents)).Int("tools", len(req.Tools)).Msg("generateContent")
	resp, err := cs.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return nil, wrapProviderError(p.Name(), err)
	}
	return fromGeminiResponse(resp)
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &ProviderError{Provider: string(KindGemini), Message: "empty response"}
	}
	cand := resp.Candidates[0]
	out := &ChatResponse{StopReason: strings.ToLower(cand.FinishReason.String())}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			args := v.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: uuid.NewString(), Name: v.Name, Arguments: args})
		}
	}
	out.Content = text.String()
	return out, nil
}

// toGeminiContents maps history onto user/model turns. Consecutive tool
// results share one user turn.
func toGeminiContents(msgs []Message) []*genai.Content {
	var out []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case RoleTool:
			key := "content"
			if m.IsError {
				key = "error"
			}
			part := genai.FunctionResponse{Name: m.ToolName, Response: map[string]any{key: m.Content}}
			if n := len(out); n > 0 && out[n-1].Role == "user" && isFunctionResponse(out[n-1].Parts) {
				out[n-1].Parts = append(out[n-1].Parts, part)
				continue
			}
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{part}})
		case RoleAssistant:
			var parts []genai.Part
			if m.Content != "" {
				parts = append(parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Arguments})
			}
			if len(parts) > 0 {
				out = append(out, &genai.Content{Role: "model", Parts: parts})
			}
		default:
			var (
				parts []genai.Part
				notes []string
			)
			for _, img := range m.Images {
				format := sanitizeForGemini(img.MIME)
				if format == "" || len(img.Data) == 0 {
					notes = append(notes, imagePlaceholder(img))
					continue
				}
				parts = append(parts, genai.ImageData(format, img.Data))
			}
			parts = append(parts, genai.Text(withImageNotes(m.Content, notes)))
			out = append(out, &genai.Content{Role: "user", Parts: parts})
		}
	}
	return out
}

func isFunctionResponse(parts []genai.Part) bool {
	if len(parts) == 0 {
		return false
	}
	_, ok := parts[0].(genai.FunctionResponse)
	return ok
}

// toGeminiSchema converts a JSON schema object into the genai schema subset.
func toGeminiSchema(s map[string]any) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{}
	if d, ok := s["description"].(string); ok {
		out.Description = d
	}
	switch t, _ := s["type"].(string); t {
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if items, ok := s["items"].(map[string]any); ok {
			out.Items = toGeminiSchema(items)
		}
	default:
		out.Type = genai.TypeObject
		if props, ok := s["properties"].(map[string]any); ok {
			out.Properties = make(map[string]*genai.Schema, len(props))
			for name, raw := range props {
				if ps, ok := raw.(map[string]any); ok {
					out.Properties[name] = toGeminiSchema(ps)
				}
			}
		}
		out.Required = stringSlice(s["required"])
	}
	out.Enum = stringSlice(s["enum"])
	return out
}
