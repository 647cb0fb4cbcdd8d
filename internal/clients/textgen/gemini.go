package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/petrel-quant/petrel/internal/domain"
)

// GeminiClient generates text via the Google Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// GeminiConfig holds Gemini client settings
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewGeminiClient creates a Gemini-backed generation client
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log zerolog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini provider", domain.ErrConfig)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   NormalizeModel(model),
		timeout: timeout,
		log:     log.With().Str("client", "gemini").Logger(),
	}, nil
}

// Model returns the configured model name
func (c *GeminiClient) Model() string {
	return c.model
}

// Generate runs one completion with a per-call timeout.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(callCtx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", domain.ErrCollaborator, err)
	}

	var out strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					out.WriteString(part.Text)
				}
			}
			if out.Len() > 0 {
				break
			}
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%w: gemini returned no text content", domain.ErrCollaborator)
	}

	c.log.Debug().
		Int("prompt_length", len(req.Prompt)).
		Int("response_length", out.Len()).
		Dur("duration", time.Since(start)).
		Msg("Gemini completion finished")

	return out.String(), nil
}
