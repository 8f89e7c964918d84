package models

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

// Environment variables consulted when Settings leaves a field empty.
const (
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGoogleKey    = "GOOGLE_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvOllamaHost   = "OLLAMA_HOST"

	DefaultOllamaHost = "http://localhost:11434"
)

// DefaultTimeout bounds a single provider round trip when no HTTP client is
// supplied.
const DefaultTimeout = 5 * time.Minute

// Settings carries connection parameters for a provider adapter.
type Settings struct {
	// APIKey overrides the vendor key environment variable.
	APIKey string
	// Host is the Ollama server address, or the API base URL for the hosted
	// vendors.
	Host       string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// NewProvider constructs the adapter for kind. Construction never touches
// the network; a missing API key surfaces as a ProviderError on first use.
func NewProvider(kind Kind, s Settings) (Provider, error) {
	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	log := s.Logger.Sub("provider." + string(kind))

	switch kind {
	case KindAnthropic:
		return newAnthropicProvider(firstNonEmpty(s.APIKey, os.Getenv(EnvAnthropicKey)), s.Host, s.HTTPClient, log), nil
	case KindOpenAI:
		return newOpenAIProvider(firstNonEmpty(s.APIKey, os.Getenv(EnvOpenAIKey)), s.Host, s.HTTPClient, log), nil
	case KindOllama:
		return newOllamaProvider(OllamaHost(s.Host), s.HTTPClient, log)
	case KindGemini:
		key := firstNonEmpty(s.APIKey, os.Getenv(EnvGeminiKey), os.Getenv(EnvGoogleKey))
		return newGeminiProvider(key, s.Host, log), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", kind)
	}
}

// OllamaHost returns host, else $OLLAMA_HOST, else the default local server.
// A bare host:port gets an http:// scheme.
func OllamaHost(host string) string {
	h := firstNonEmpty(host, os.Getenv(EnvOllamaHost), DefaultOllamaHost)
	if !strings.Contains(h, "://") {
		h = "http://" + h
	}
	return strings.TrimRight(h, "/")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
