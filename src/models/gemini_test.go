package models

import (
	"context"
	"errors"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
)

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "regex"},
			"limit": map[string]any{"type": "integer"},
			"paths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"mode":  map[string]any{"type": "string", "enum": []any{"fast", "slow"}},
		},
		"required": []any{"query"},
	})
	if s.Type != genai.TypeObject || len(s.Properties) != 4 {
		t.Fatalf("unexpected schema %+v", s)
	}
	if s.Properties["query"].Type != genai.TypeString || s.Properties["query"].Description != "regex" {
		t.Fatalf("unexpected query schema %+v", s.Properties["query"])
	}
	if s.Properties["paths"].Items == nil || s.Properties["paths"].Items.Type != genai.TypeString {
		t.Fatalf("unexpected array schema %+v", s.Properties["paths"])
	}
	if len(s.Properties["mode"].Enum) != 2 || len(s.Required) != 1 || s.Required[0] != "query" {
		t.Fatalf("unexpected enum/required %+v", s)
	}
	if toGeminiSchema(nil) != nil {
		t.Fatal("nil schema should stay nil")
	}
}

func TestToGeminiContents(t *testing.T) {
	contents := toGeminiContents([]Message{
		{Role: RoleUser, Content: "describe", Images: []Image{{MIME: "image/png", Data: pngHeader}}},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "a"}, {Name: "b"}}},
		{Role: RoleTool, ToolName: "a", Content: "ok"},
		{Role: RoleTool, ToolName: "b", Content: "bad", IsError: true},
	})
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || len(contents[0].Parts) != 2 {
		t.Fatalf("unexpected user content %+v", contents[0])
	}
	if contents[1].Role != "model" || len(contents[1].Parts) != 2 {
		t.Fatalf("unexpected model content %+v", contents[1])
	}
	if len(contents[2].Parts) != 2 {
		t.Fatalf("tool results should share a turn, got %+v", contents[2])
	}
	fr := contents[2].Parts[1].(genai.FunctionResponse)
	if fr.Name != "b" || fr.Response["error"] != "bad" {
		t.Fatalf("unexpected function response %+v", fr)
	}
}

func TestFromGeminiResponse(t *testing.T) {
	resp, err := fromGeminiResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Role: "model", Parts: []genai.Part{
				genai.Text("hello "),
				genai.Text("world"),
				genai.FunctionCall{Name: "read_file", Args: map[string]any{"target_file": "x"}},
			}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 4, CandidatesTokenCount: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello world" || len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Usage.InputTokens != 4 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}

	if _, err := fromGeminiResponse(&genai.GenerateContentResponse{}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeminiMissingKey(t *testing.T) {
	p := newGeminiProvider("", "", nil)
	_, err := p.Chat(context.Background(), ChatRequest{Model: "gemini-1.5-pro", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "gemini" {
		t.Fatalf("expected gemini ProviderError, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close without client: %v", err)
	}
}
