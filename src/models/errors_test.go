package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	ollama "github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

func TestWrapProviderError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"openai api", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, 401, "bad key"},
		{"openai request", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("gateway")}, 502, "gateway"},
		{"ollama status", ollama.StatusError{StatusCode: 404, Status: "404 Not Found", ErrorMessage: "model not found"}, 404, "model not found"},
		{"ollama status only", ollama.StatusError{StatusCode: 500, Status: "500 Internal Server Error"}, 500, "500 Internal Server Error"},
		{"google", &googleapi.Error{Code: 403, Message: "forbidden"}, 403, "forbidden"},
		{"wrapped google", fmt.Errorf("call: %w", &googleapi.Error{Code: 429, Message: "quota"}), 429, "quota"},
		{"plain", errors.New("dial tcp: refused"), 0, "dial tcp: refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapProviderError("x", tc.err)
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ProviderError, got %T", err)
			}
			if pe.StatusCode != tc.wantStatus || pe.Message != tc.wantMsg || pe.Provider != "x" {
				t.Fatalf("got %+v", pe)
			}
			if !errors.Is(err, tc.err) {
				t.Fatal("ProviderError must unwrap to the SDK error")
			}
		})
	}
}

func TestWrapProviderErrorPassthrough(t *testing.T) {
	orig := &ProviderError{Provider: "openai", StatusCode: http.StatusTooManyRequests, Message: "slow"}
	if got := wrapProviderError("other", orig); got != orig {
		t.Fatalf("expected existing ProviderError to pass through, got %v", got)
	}
	if wrapProviderError("x", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestErrorMessages(t *testing.T) {
	if got := (&ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"}).Error(); got != "openai: 500 boom" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := (&ProviderError{Provider: "ollama", Message: "refused"}).Error(); got != "ollama: refused" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := (&UnsupportedCapabilityError{Model: "gpt-3.5-turbo", Capability: "vision"}).Error(); got != `model "gpt-3.5-turbo" does not support vision` {
		t.Fatalf("unexpected: %q", got)
	}
}
