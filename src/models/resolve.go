package models

import "strings"

// Kind names a provider family.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
	KindOllama    Kind = "ollama"
	KindGemini    Kind = "gemini"
)

// Kinds lists every supported provider in routing order.
var Kinds = []Kind{KindAnthropic, KindOpenAI, KindOllama, KindGemini}

const ollamaPrefix = "ollama-"

var openAIFamilies = []string{"o1", "o3", "o4"}

// Resolve maps a model identifier onto exactly one provider kind and the
// model name that provider expects. The "ollama-" prefix is stripped; every
// other identifier is passed through unchanged.
func Resolve(model string) (Kind, string, error) {
	id := strings.TrimSpace(model)
	lower := strings.ToLower(id)

	switch {
	case strings.HasPrefix(lower, "claude-"):
		return KindAnthropic, id, nil
	case strings.HasPrefix(lower, "gpt-"), strings.HasPrefix(lower, "chatgpt-"):
		return KindOpenAI, id, nil
	case strings.HasPrefix(lower, "gemini-"):
		return KindGemini, id, nil
	case strings.HasPrefix(lower, ollamaPrefix):
		name := strings.TrimSpace(id[len(ollamaPrefix):])
		if name == "" {
			return "", "", &UnknownModelError{Model: model}
		}
		return KindOllama, name, nil
	}
	for _, family := range openAIFamilies {
		if lower == family || strings.HasPrefix(lower, family+"-") {
			return KindOpenAI, id, nil
		}
	}
	return "", "", &UnknownModelError{Model: model}
}
