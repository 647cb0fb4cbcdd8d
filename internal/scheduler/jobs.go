package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/modules/iteration"
	"github.com/petrel-quant/petrel/internal/modules/pipeline"
)

const jobTimeout = 2 * time.Hour

// ScreenPipelineJob runs the daily screen pipeline for the current trade date.
type ScreenPipelineJob struct {
	orchestrator *pipeline.Orchestrator
	log          zerolog.Logger
}

func NewScreenPipelineJob(orchestrator *pipeline.Orchestrator, log zerolog.Logger) *ScreenPipelineJob {
	return &ScreenPipelineJob{
		orchestrator: orchestrator,
		log:          log.With().Str("job", "screen_pipeline").Logger(),
	}
}

func (j *ScreenPipelineJob) Name() string { return "screen_pipeline" }

func (j *ScreenPipelineJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	tradeDate := time.Now().Format("2006-01-02")
	sum, err := j.orchestrator.Run(ctx, tradeDate)
	if err != nil {
		return err
	}
	j.log.Info().
		Str("trade_date", sum.TradeDate).
		Int("candidates", sum.CandidateCount).
		Int("cards", sum.CardCount).
		Msg("Scheduled screen run finished")
	return nil
}

// IterationPipelineJob runs the tracking and patch-proposal pipeline.
type IterationPipelineJob struct {
	runner *iteration.Runner
	log    zerolog.Logger
}

func NewIterationPipelineJob(runner *iteration.Runner, log zerolog.Logger) *IterationPipelineJob {
	return &IterationPipelineJob{
		runner: runner,
		log:    log.With().Str("job", "iteration_pipeline").Logger(),
	}
}

func (j *IterationPipelineJob) Name() string { return "iteration_pipeline" }

func (j *IterationPipelineJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	tradeDate := time.Now().Format("2006-01-02")
	sum, err := j.runner.Run(ctx, tradeDate)
	if err != nil {
		return err
	}
	j.log.Info().
		Str("trade_date", sum.TradeDate).
		Int("tracked", sum.TrackedCount).
		Int("proposals", sum.ProposalCount).
		Msg("Scheduled iteration run finished")
	return nil
}
