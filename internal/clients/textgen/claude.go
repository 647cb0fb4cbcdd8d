package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/domain"
)

// ClaudeClient generates text via the Anthropic Claude API.
type ClaudeClient struct {
	client    anthropic.Client
	model     string
	timeout   time.Duration
	maxTokens int
	log       zerolog.Logger
}

// ClaudeConfig holds Claude client settings
type ClaudeConfig struct {
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// NewClaudeClient creates a Claude-backed generation client
func NewClaudeClient(cfg ClaudeConfig, log zerolog.Logger) (*ClaudeClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is required for the claude provider", domain.ErrConfig)
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &ClaudeClient{
		client:    client,
		model:     NormalizeModel(model),
		timeout:   timeout,
		maxTokens: maxTokens,
		log:       log.With().Str("client", "claude").Logger(),
	}, nil
}

// Model returns the configured model name
func (c *ClaudeClient) Model() string {
	return c.model
}

// Generate runs one completion with a per-call timeout.
func (c *ClaudeClient) Generate(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		return "", fmt.Errorf("%w: claude: %v", domain.ErrCollaborator, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%w: claude returned no text content", domain.ErrCollaborator)
	}

	c.log.Debug().
		Int("prompt_length", len(req.Prompt)).
		Int("response_length", out.Len()).
		Dur("duration", time.Since(start)).
		Msg("Claude completion finished")

	return out.String(), nil
}
