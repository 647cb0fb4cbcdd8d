package textgen

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/petrel-quant/petrel/internal/domain"
)

// RetryConfig bounds retries and throttles calls against provider rate limits.
type RetryConfig struct {
	MaxRetries     int           // attempts beyond the first call
	InitialBackoff time.Duration // doubled per retry
	RateLimit      float64       // requests per second, 0 disables throttling
}

type retryClient struct {
	inner   Client
	cfg     RetryConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

// WithRetry wraps a client with bounded exponential backoff and a shared
// rate limiter. Context cancellation is never retried; everything else is
// treated as transient up to MaxRetries.
func WithRetry(inner Client, cfg RetryConfig, log zerolog.Logger) Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &retryClient{
		inner:   inner,
		cfg:     cfg,
		limiter: limiter,
		log:     log.With().Str("component", "textgen_retry").Logger(),
	}
}

func (r *retryClient) Model() string {
	return r.inner.Model()
}

func (r *retryClient) Generate(ctx context.Context, req Request) (string, error) {
	backoff := r.cfg.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		out, err := r.inner.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return "", lastErr
		}
		if attempt == r.cfg.MaxRetries {
			break
		}

		r.log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Generation failed, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = domain.ErrCollaborator
	}
	return "", lastErr
}
