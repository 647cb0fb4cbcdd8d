package textgen

import (
	"context"
	"strings"
)

// Request is a provider-agnostic generation request. The core never assumes
// semantic correctness of the output, only structural validity, which is
// checked by the caller.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Client generates text from a structured prompt. Implementations must
// honor ctx cancellation and return an error on timeout or transport
// failure rather than a partial response.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// ProviderType represents the generation backend
type ProviderType string

const (
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// DetectProvider determines the provider type from a model string.
// "claude-sonnet-4-20250514" or "claude/..." -> Claude;
// "gemini-2.5-flash" or "gemini/..." -> Gemini.
func DetectProvider(model string) ProviderType {
	m := strings.ToLower(model)
	if strings.HasPrefix(m, "claude/") || strings.HasPrefix(m, "anthropic/") || strings.HasPrefix(m, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(m, "gemini/") || strings.HasPrefix(m, "google/") || strings.HasPrefix(m, "gemini-") {
		return ProviderGemini
	}
	return ProviderClaude
}

// NormalizeModel removes a provider prefix from the model name if present
func NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}
