package textgen

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FactoryConfig selects and configures the generation backend by model name.
type FactoryConfig struct {
	Model           string
	AnthropicAPIKey string
	GeminiAPIKey    string
	Timeout         time.Duration
	MaxRetries      int
	RateLimit       float64 // requests per second shared across workers
}

// NewClient builds the provider matching the configured model and wraps it
// with rate limiting and bounded retry.
func NewClient(ctx context.Context, cfg FactoryConfig, log zerolog.Logger) (Client, error) {
	var (
		base Client
		err  error
	)
	switch DetectProvider(cfg.Model) {
	case ProviderGemini:
		base, err = NewGeminiClient(ctx, GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, log)
	default:
		base, err = NewClaudeClient(ClaudeConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, log)
	}
	if err != nil {
		return nil, err
	}

	return WithRetry(base, RetryConfig{
		MaxRetries: cfg.MaxRetries,
		RateLimit:  cfg.RateLimit,
	}, log), nil
}
