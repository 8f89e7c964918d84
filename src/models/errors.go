package models

import (
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	ollama "github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// UnknownModelError is returned when a model identifier matches no provider.
type UnknownModelError struct {
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q: expected a claude-, gpt-, o1/o3/o4, gemini- or ollama- identifier", e.Model)
}

// UnsupportedCapabilityError is returned when a model lacks a requested
// capability such as vision.
type UnsupportedCapabilityError struct {
	Model      string
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("model %q does not support %s", e.Model, e.Capability)
}

// ProviderError wraps a transport or vendor-side failure.
type ProviderError struct {
	Provider   string
	StatusCode int // HTTP status when known, 0 otherwise
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// wrapProviderError converts an SDK error into a *ProviderError, extracting
// the HTTP status from whichever vendor error type is present.
func wrapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	out := &ProviderError{Provider: provider, Err: err}

	var (
		anthropicErr *anthropic.Error
		openaiAPIErr *openai.APIError
		openaiReqErr *openai.RequestError
		ollamaErr    ollama.StatusError
		googleErr    *googleapi.Error
	)
	switch {
	case errors.As(err, &openaiAPIErr):
		out.StatusCode = openaiAPIErr.HTTPStatusCode
		out.Message = openaiAPIErr.Message
	case errors.As(err, &openaiReqErr):
		out.StatusCode = openaiReqErr.HTTPStatusCode
		if openaiReqErr.Err != nil {
			out.Message = openaiReqErr.Err.Error()
		}
	case errors.As(err, &ollamaErr):
		out.StatusCode = ollamaErr.StatusCode
		out.Message = ollamaErr.ErrorMessage
		if out.Message == "" {
			out.Message = ollamaErr.Status
		}
	case errors.As(err, &googleErr):
		out.StatusCode = googleErr.Code
		out.Message = googleErr.Message
	case errors.As(err, &anthropicErr):
		out.StatusCode = anthropicErr.StatusCode
		out.Message = anthropicErrorMessage(anthropicErr)
	}
	if strings.TrimSpace(out.Message) == "" {
		out.Message = err.Error()
	}
	return out
}

// anthropicErrorMessage prefers the raw JSON body; Error() on a bare
// anthropic.Error dereferences the request.
func anthropicErrorMessage(e *anthropic.Error) string {
	if raw := strings.TrimSpace(e.RawJSON()); raw != "" {
		return raw
	}
	if e.Request != nil {
		return e.Error()
	}
	return ""
}
