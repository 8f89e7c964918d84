package models

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProviderChat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3.1","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"Listing.","tool_calls":[{"function":{"name":"list_directory","arguments":{"relative_workspace_path":"."}}}]},"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":2}`)
	}))
	defer srv.Close()

	p, err := newOllamaProvider(srv.URL, srv.Client(), nil)
	if err != nil {
		t.Fatal(err)
	}
	temp := 0.5
	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:       "llama3.1",
		System:      "sys",
		Temperature: &temp,
		Messages: []Message{
			{Role: RoleUser, Content: "what files?", Images: []Image{{MIME: "image/png", Data: pngHeader}}},
		},
		Tools: []ToolDefinition{{
			Name:       "list_directory",
			Parameters: map[string]any{"type": "object", "properties": map[string]any{"relative_workspace_path": map[string]any{"type": "string", "description": "dir"}}},
		}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Listing." || resp.StopReason != "stop" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "list_directory" || resp.ToolCalls[0].ID == "" {
		t.Fatalf("unexpected tool calls %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments["relative_workspace_path"] != "." {
		t.Fatalf("unexpected arguments %v", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage.InputTokens != 3 || resp.Usage.OutputTokens != 2 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}

	if body["stream"] != false {
		t.Fatalf("expected non-streaming request, got %v", body["stream"])
	}
	msgs := body["messages"].([]any)
	if msgs[0].(map[string]any)["role"] != "system" {
		t.Fatalf("expected leading system message, got %v", msgs[0])
	}
	if imgs := msgs[1].(map[string]any)["images"].([]any); len(imgs) != 1 {
		t.Fatalf("expected one image, got %v", imgs)
	}
	if opts := body["options"].(map[string]any); opts["temperature"] != 0.5 {
		t.Fatalf("unexpected options %v", opts)
	}
	if tools := body["tools"].([]any); len(tools) != 1 {
		t.Fatalf("unexpected tools %v", tools)
	}
}

func TestOllamaProviderModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model \"nope\" not found, try pulling it first"}`)
	}))
	defer srv.Close()

	p, _ := newOllamaProvider(srv.URL, srv.Client(), nil)
	_, err := p.Chat(context.Background(), ChatRequest{Model: "nope", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusNotFound || pe.Provider != "ollama" {
		t.Fatalf("unexpected error %+v", pe)
	}
}

func TestOllamaProviderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, _ := newOllamaProvider(url, &http.Client{}, nil)
	_, err := p.Chat(context.Background(), ChatRequest{Model: "llama3", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != 0 {
		t.Fatalf("expected transport ProviderError without status, got %v", err)
	}
}

func TestListOllamaModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"models":[
			{"name":"llava:latest","model":"llava:latest","modified_at":"2024-01-01T00:00:00Z","size":4100000000,"digest":"abc","details":{"family":"llama","parameter_size":"7B"}},
			{"name":"llama3.1:8b","model":"llama3.1:8b","modified_at":"2024-02-01T00:00:00Z","size":4700000000,"digest":"def","details":{"family":"llama","parameter_size":"8B"}}
		]}`)
	}))
	defer srv.Close()

	models, err := ListOllamaModels(context.Background(), srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("ListOllamaModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if !models[0].Capabilities.Vision || models[0].ParameterSize != "7B" {
		t.Fatalf("unexpected first model %+v", models[0])
	}
	if !models[1].Capabilities.Tools || models[1].Capabilities.Vision {
		t.Fatalf("unexpected second model %+v", models[1])
	}
}

func TestOllamaToolCallRoundTrip(t *testing.T) {
	in := ToolCall{ID: "x", Name: "grep_search", Arguments: map[string]any{"query": "TODO", "case_sensitive": true}}
	oc, err := toOllamaToolCall(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := fromOllamaToolCall(oc)
	if err != nil {
		t.Fatal(err)
	}
	if out.Name != in.Name || out.Arguments["query"] != "TODO" || out.Arguments["case_sensitive"] != true {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
