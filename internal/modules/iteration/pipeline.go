package iteration

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/artifacts"
	"github.com/petrel-quant/petrel/internal/modules/pipeline"
)

// Artifact file names for the iteration pipeline.
const (
	ArtifactTracking  = "D_tracking_metrics.json"
	ArtifactProposals = "E_patch_proposals.json"
)

// Summary reports one iteration run.
type Summary struct {
	TradeDate     string `json:"trade_date"`
	TrackedCount  int    `json:"tracked_count"`
	ProposalCount int    `json:"proposal_count"`
}

// Runner drives the feedback pipeline: track prior selections, scan for
// failure patterns, append proposals to the pool, persist artifacts.
type Runner struct {
	tracker  *Tracker
	gen      *Generator
	pool     *Pool
	store    *artifacts.Store
	lookback int
	log      zerolog.Logger
}

func NewRunner(tracker *Tracker, gen *Generator, pool *Pool, store *artifacts.Store, lookback int, log zerolog.Logger) *Runner {
	if lookback < 1 {
		lookback = 5
	}
	return &Runner{
		tracker:  tracker,
		gen:      gen,
		pool:     pool,
		store:    store,
		lookback: lookback,
		log:      log.With().Str("component", "iteration_pipeline").Logger(),
	}
}

// Run executes one iteration for a trade date.
func (r *Runner) Run(ctx context.Context, tradeDate string) (*Summary, error) {
	dir := r.store.IterationDir(tradeDate)
	trace := pipeline.NewTraceLog()
	r.log.Info().Str("trade_date", tradeDate).Msg("Iteration pipeline starting")

	metrics, err := r.tracker.Track(ctx, tradeDate, r.lookback)
	if err != nil {
		return nil, fmt.Errorf("tracking: %w", err)
	}
	trace.Append("tracking", r.lookback, len(metrics))
	if err := r.store.WriteJSON(dir, ArtifactTracking, map[string]any{
		"trade_date": tradeDate,
		"metrics":    metrics,
	}); err != nil {
		return nil, err
	}

	proposals := r.gen.Generate(tradeDate, metrics)
	appended := make([]Proposal, 0, len(proposals))
	for _, prop := range proposals {
		stored, err := r.pool.Append(prop)
		if err != nil {
			return nil, fmt.Errorf("appending proposal: %w", err)
		}
		appended = append(appended, stored)
	}
	trace.Append("pattern_scan", len(metrics), len(appended))
	if err := r.store.WriteJSON(dir, ArtifactProposals, map[string]any{
		"trade_date": tradeDate,
		"proposals":  appended,
	}); err != nil {
		return nil, err
	}

	trace.AppendNote("done", "iteration complete")
	if err := r.store.WriteJSON(dir, pipeline.ArtifactTraceLog, trace.Entries()); err != nil {
		return nil, err
	}

	r.log.Info().
		Str("trade_date", tradeDate).
		Int("tracked", len(metrics)).
		Int("proposals", len(appended)).
		Msg("Iteration pipeline complete")

	return &Summary{TradeDate: tradeDate, TrackedCount: len(metrics), ProposalCount: len(appended)}, nil
}
