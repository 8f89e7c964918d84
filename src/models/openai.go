package models

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

type openAIProvider struct {
	client *openai.Client
	log    *logging.Logger
}

func newOpenAIProvider(apiKey, baseURL string, hc *http.Client, log *logging.Logger) *openAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = hc
	return &openAIProvider{client: openai.NewClientWithConfig(cfg), log: log}
}

func (p *openAIProvider) Name() string { return string(KindOpenAI) }

func (p *openAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	creq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.System, req.Messages),
	}
	if req.MaxTokens > 0 {
		// Reasoning models reject max_tokens and custom temperatures.
		if isOpenAIReasoningModel(req.Model) {
			creq.MaxCompletionTokens = req.MaxTokens
		} else {
			creq.MaxTokens = req.MaxTokens
		}
	}
	if req.Temperature != nil && !isOpenAIReasoningModel(req.Model) {
		creq.Temperature = float32(*req.Temperature)
	}
	for _, t := range req.Tools {
		creq.Tools = append(creq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	p.log.Debug().Str("model", req.Model).Int("messages", len(creq.Messages)).Int("tools", len(creq.Tools)).Msg("chat.completions")
	resp, err := p.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, wrapProviderError(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Message: "response contained no choices"}
	}

	choice := resp.Choices[0]
	out := &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage:      Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens},
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if s := strings.TrimSpace(tc.Function.Arguments); s != "" {
			if err := json.Unmarshal([]byte(s), &args); err != nil {
				return nil, &ProviderError{Provider: p.Name(), Message: "malformed tool arguments for " + tc.Function.Name, Err: err}
			}
		}
		id := tc.ID
		if id == "" {
			id = uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: tc.Function.Name, Arguments: args})
	}
	return out, nil
}

func toOpenAIMessages(system string, msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		switch m.Role {
		case RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				raw, _ := json.Marshal(tc.Arguments)
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:       tc.ID,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: tc.Name, Arguments: string(raw)},
				})
			}
			out = append(out, msg)
		default:
			out = append(out, toOpenAIUserMessage(m))
		}
	}
	return out
}

// toOpenAIUserMessage uses the multi-part form only when images are attached;
// Content and MultiContent are mutually exclusive.
func toOpenAIUserMessage(m Message) openai.ChatCompletionMessage {
	var (
		parts []openai.ChatMessagePart
		notes []string
	)
	for _, img := range m.Images {
		mt := getOpenAIMimeType(img.MIME)
		if mt == "" || len(img.Data) == 0 {
			notes = append(notes, imagePlaceholder(img))
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	content := withImageNotes(m.Content, notes)
	if len(parts) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}
	}
	parts = append([]openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: content}}, parts...)
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func isOpenAIReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, family := range openAIFamilies {
		if m == family || strings.HasPrefix(m, family+"-") {
			return true
		}
	}
	return strings.HasPrefix(m, "gpt-5")
}
