package models

import "strings"

// Capabilities describes what a (provider, model) pair can do.
type Capabilities struct {
	Vision bool
	Tools  bool
}

var (
	openAIVisionPrefixes = []string{"gpt-4o", "chatgpt-4o", "gpt-4.1", "gpt-4-turbo", "gpt-4-vision", "gpt-4.5", "gpt-5", "o1", "o3", "o4-mini"}
	openAITextOnly       = []string{"o1-mini", "o1-preview", "o3-mini"}

	ollamaVisionFamilies = []string{"llava", "bakllava", "moondream", "llama3.2-vision", "llama4", "minicpm-v", "gemma3", "qwen2.5vl", "qwen2-vl", "granite3.2-vision", "mistral-small3.1"}
	ollamaToolFamilies   = []string{"llama3.1", "llama3.2", "llama3.3", "llama4", "qwen2.5", "qwen3", "mistral", "mixtral", "command-r", "firefunction", "hermes3", "granite3", "smollm2", "nemotron", "gpt-oss", "devstral"}
)

// CapabilitiesFor reports vision and tool support for a resolved model name.
func CapabilitiesFor(kind Kind, model string) Capabilities {
	name := strings.ToLower(strings.TrimSpace(model))
	switch kind {
	case KindAnthropic:
		legacy := strings.HasPrefix(name, "claude-2") || strings.HasPrefix(name, "claude-instant")
		return Capabilities{
			Vision: !legacy && !strings.HasPrefix(name, "claude-3-5-haiku"),
			Tools:  !legacy,
		}
	case KindOpenAI:
		return Capabilities{
			Vision: hasAnyPrefix(name, openAIVisionPrefixes) && !hasAnyPrefix(name, openAITextOnly),
			Tools:  !strings.HasPrefix(name, "o1-mini") && !strings.HasPrefix(name, "o1-preview"),
		}
	case KindOllama:
		base := name
		if i := strings.IndexByte(base, ':'); i >= 0 {
			base = base[:i]
		}
		return Capabilities{
			Vision: strings.Contains(base, "vision") || hasAnyPrefix(base, ollamaVisionFamilies),
			Tools:  hasAnyPrefix(base, ollamaToolFamilies),
		}
	case KindGemini:
		return Capabilities{Vision: true, Tools: true}
	default:
		return Capabilities{}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
