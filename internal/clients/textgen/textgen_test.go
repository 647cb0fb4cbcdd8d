package textgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-quant/petrel/internal/domain"
)

func TestExtractJSONPlain(t *testing.T) {
	var out struct {
		OneLiner string `json:"one_liner"`
	}
	err := ExtractJSON(`{"one_liner":"主线题材确认"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "主线题材确认", out.OneLiner)
}

func TestExtractJSONStripsCodeFence(t *testing.T) {
	var out struct {
		Grade string `json:"grade"`
	}
	err := ExtractJSON("```json\n{\"grade\":\"Strong\"}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "Strong", out.Grade)
}

func TestExtractJSONIgnoresSurroundingProse(t *testing.T) {
	var out struct {
		Grade string `json:"grade"`
	}
	err := ExtractJSON("好的，以下是分析结果：\n{\"grade\":\"Medium\"}\n希望对你有帮助。", &out)
	require.NoError(t, err)
	assert.Equal(t, "Medium", out.Grade)
}

func TestExtractJSONNoObject(t *testing.T) {
	var out map[string]any
	err := ExtractJSON("模型没有返回结构化内容", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaViolation))
}

func TestExtractJSONMalformed(t *testing.T) {
	var out map[string]any
	err := ExtractJSON(`{"grade": Strong}`, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaViolation))
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model string
		want  ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-3-haiku", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-pro", ProviderGemini},
		{"something-else", ProviderClaude},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectProvider(tt.model), tt.model)
	}
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", NormalizeModel("gemini/gemini-2.5-flash"))
	assert.Equal(t, "claude-sonnet-4-20250514", NormalizeModel("claude-sonnet-4-20250514"))
}

type flakyClient struct {
	failures int
	calls    int
}

func (f *flakyClient) Model() string { return "flaky" }

func (f *flakyClient) Generate(ctx context.Context, req Request) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("upstream 529")
	}
	return "ok", nil
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyClient{failures: 2}
	c := WithRetry(inner, RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}, zerolog.Nop())

	out, err := c.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyClient{failures: 10}
	c := WithRetry(inner, RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}, zerolog.Nop())

	_, err := c.Generate(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	inner := &flakyClient{failures: 10}
	c := WithRetry(inner, RetryConfig{MaxRetries: 5, InitialBackoff: time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, Request{Prompt: "hi"})
	require.Error(t, err)
	assert.LessOrEqual(t, inner.calls, 1)
}
