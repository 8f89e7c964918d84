package agent

import "github.com/Protocol-Lattice/cursor-agent/src/models"

// Response is the outcome of one Chat or QueryImage call. A plain-text
// answer has no ToolCalls.
type Response struct {
	Message   string     `json:"message"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall records one tool execution in call order.
type ToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
	Result     any            `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Errors surfaced by the agent.
type (
	UnknownModelError          = models.UnknownModelError
	ProviderError              = models.ProviderError
	UnsupportedCapabilityError = models.UnsupportedCapabilityError
)
