package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data/petrel.db", cfg.DatabasePath)
	assert.Equal(t, "./results", cfg.ResultsDir)
	assert.Equal(t, "simple", cfg.StoryMode)
	assert.Equal(t, 5.0, cfg.MinChangePct)
	assert.Equal(t, 400, cfg.MaxUniverse)
	assert.Equal(t, 30, cfg.TopN)
	assert.Equal(t, 3, cfg.LookbackDays)
	assert.Equal(t, 5, cfg.MinValidT3Samples)
	assert.Equal(t, 90*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 8010, cfg.Port)
	assert.True(t, cfg.EnableAI)
	assert.False(t, cfg.DevMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORY_MODE", "two_layer")
	t.Setenv("MIN_CHANGE_PCT", "7.5")
	t.Setenv("MAX_UNIVERSE", "100")
	t.Setenv("ENABLE_AI", "false")
	t.Setenv("LLM_TIMEOUT_SECONDS", "30")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "two_layer", cfg.StoryMode)
	assert.Equal(t, 7.5, cfg.MinChangePct)
	assert.Equal(t, 100, cfg.MaxUniverse)
	assert.False(t, cfg.EnableAI)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoadMalformedNumberFallsBack(t *testing.T) {
	t.Setenv("MAX_UNIVERSE", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.MaxUniverse)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"invalid story mode", func(c *Config) { c.StoryMode = "hybrid" }, "STORY_MODE"},
		{"missing database path", func(c *Config) { c.DatabasePath = "" }, "DATABASE_PATH"},
		{"missing results dir", func(c *Config) { c.ResultsDir = "" }, "RESULTS_DIR"},
		{"non-positive universe", func(c *Config) { c.MaxUniverse = 0 }, "MAX_UNIVERSE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
