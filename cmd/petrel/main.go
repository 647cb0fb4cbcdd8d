package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/artifacts"
	"github.com/petrel-quant/petrel/internal/clients/marketdata"
	"github.com/petrel-quant/petrel/internal/clients/textgen"
	"github.com/petrel-quant/petrel/internal/config"
	"github.com/petrel-quant/petrel/internal/database"
	"github.com/petrel-quant/petrel/internal/modules/decision"
	"github.com/petrel-quant/petrel/internal/modules/iteration"
	"github.com/petrel-quant/petrel/internal/modules/pipeline"
	"github.com/petrel-quant/petrel/internal/modules/screener"
	"github.com/petrel-quant/petrel/internal/modules/sector"
	"github.com/petrel-quant/petrel/internal/modules/story"
	"github.com/petrel-quant/petrel/internal/modules/universe"
	"github.com/petrel-quant/petrel/internal/scheduler"
	"github.com/petrel-quant/petrel/internal/server"
	"github.com/petrel-quant/petrel/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Petrel")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx := context.Background()

	orchestrator, runner, pool, err := buildPipelines(ctx, cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipelines")
	}

	// RUN_ONCE=<trade date> short-circuits to a single screen run
	if tradeDate := os.Getenv("RUN_ONCE"); tradeDate != "" {
		if _, err := orchestrator.Run(ctx, tradeDate); err != nil {
			log.Fatal().Err(err).Str("trade_date", tradeDate).Msg("Pipeline run failed")
		}
		return
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := sched.AddJob(cfg.ScreenSchedule, scheduler.NewScreenPipelineJob(orchestrator, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register screen job")
	}
	if err := sched.AddJob(cfg.IterationSchedule, scheduler.NewIterationPipelineJob(runner, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register iteration job")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Pool:    pool,
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func buildPipelines(ctx context.Context, cfg *config.Config, db *database.DB, log zerolog.Logger) (*pipeline.Orchestrator, *iteration.Runner, *iteration.Pool, error) {
	data := marketdata.NewClient(cfg.QuoteServiceURL, log)
	store := artifacts.New(cfg.ResultsDir)

	rb, err := screener.LoadRulebook(cfg.RulebookPath)
	if err != nil {
		return nil, nil, nil, err
	}
	rb.HardFilters.MinChangePct = cfg.MinChangePct

	var analyzer story.Analyzer = story.NewSimpleAnalyzer(log)
	var llm textgen.Client
	if cfg.EnableAI {
		llm, err = textgen.NewClient(ctx, textgen.FactoryConfig{
			Model:           cfg.Model,
			AnthropicAPIKey: cfg.AnthropicAPIKey,
			GeminiAPIKey:    cfg.GeminiAPIKey,
			Timeout:         cfg.LLMTimeout,
			MaxRetries:      cfg.LLMMaxRetries,
			RateLimit:       cfg.LLMRateLimit,
		}, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.StoryMode == "two_layer" {
			analyzer = story.NewTwoLayerAnalyzer(llm, cfg.StoryWorkers, log)
		}
	}

	orchestrator := pipeline.NewOrchestrator(
		data,
		universe.NewFeatureAttacher(data, cfg.StoryWorkers, log),
		screener.New(log),
		sector.New(log),
		analyzer,
		decision.NewEngine(llm, cfg.StoryWorkers, log),
		store,
		pipeline.Options{
			Rulebook:    rb,
			MaxUniverse: cfg.MaxUniverse,
			EnableAI:    cfg.EnableAI,
		},
		log,
	)

	pool := iteration.NewPool(db, log)
	runner := iteration.NewRunner(
		iteration.NewTracker(data, store, log),
		iteration.NewGenerator(cfg.MinValidT3Samples, log),
		pool,
		store,
		cfg.LookbackDays,
		log,
	)

	return orchestrator, runner, pool, nil
}
