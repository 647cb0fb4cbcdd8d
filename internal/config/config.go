package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath    string
	ResultsDir      string
	QuoteServiceURL string

	// Text-generation collaborator
	AnthropicAPIKey string
	GeminiAPIKey    string
	Model           string
	EnableAI        bool
	LLMTimeout      time.Duration
	LLMMaxRetries   int
	LLMRateLimit    float64 // requests per second across workers

	// Screening
	RulebookPath string
	StoryMode    string // simple | two_layer
	MinChangePct float64
	MaxUniverse  int
	TopN         int
	StoryWorkers int

	// Iteration
	LookbackDays      int
	MinValidT3Samples int

	// Schedules (cron, with seconds field)
	ScreenSchedule    string
	IterationSchedule string

	LogLevel string
	Port     int
	DevMode  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:      getEnv("DATABASE_PATH", "./data/petrel.db"),
		ResultsDir:        getEnv("RESULTS_DIR", "./results"),
		QuoteServiceURL:   getEnv("QUOTE_SERVICE_URL", "http://localhost:9100"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		Model:             getEnv("TEXTGEN_MODEL", "claude-sonnet-4-20250514"),
		EnableAI:          getEnvAsBool("ENABLE_AI", true),
		LLMTimeout:        time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 90)) * time.Second,
		LLMMaxRetries:     getEnvAsInt("LLM_MAX_RETRIES", 2),
		LLMRateLimit:      getEnvAsFloat("LLM_RATE_LIMIT", 1.0),
		RulebookPath:      getEnv("RULEBOOK_PATH", ""),
		StoryMode:         getEnv("STORY_MODE", "simple"),
		MinChangePct:      getEnvAsFloat("MIN_CHANGE_PCT", 5.0),
		MaxUniverse:       getEnvAsInt("MAX_UNIVERSE", 400),
		TopN:              getEnvAsInt("TOP_N_COARSE", 30),
		StoryWorkers:      getEnvAsInt("STORY_WORKERS", 4),
		LookbackDays:      getEnvAsInt("ITERATION_LOOKBACK_DAYS", 3),
		MinValidT3Samples: getEnvAsInt("MIN_VALID_T3_SAMPLES", 5),
		ScreenSchedule:    getEnv("SCREEN_SCHEDULE", "0 30 17 * * MON-FRI"),
		IterationSchedule: getEnv("ITERATION_SCHEDULE", "0 0 18 * * MON-FRI"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnvAsInt("PORT", 8010),
		DevMode:           getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.ResultsDir == "" {
		return fmt.Errorf("RESULTS_DIR is required")
	}
	if c.StoryMode != "simple" && c.StoryMode != "two_layer" {
		return fmt.Errorf("STORY_MODE must be simple or two_layer, got %q", c.StoryMode)
	}
	if c.MaxUniverse <= 0 {
		return fmt.Errorf("MAX_UNIVERSE must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
