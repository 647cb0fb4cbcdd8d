package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/artifacts"
	"github.com/petrel-quant/petrel/internal/clients/marketdata"
	"github.com/petrel-quant/petrel/internal/modules/decision"
	"github.com/petrel-quant/petrel/internal/modules/screener"
	"github.com/petrel-quant/petrel/internal/modules/sector"
	"github.com/petrel-quant/petrel/internal/modules/story"
	"github.com/petrel-quant/petrel/internal/modules/universe"
)

// Pipeline states, strictly linear.
const (
	StateUniverse    = "universe"
	StateCoarse      = "coarse_screen"
	StateCalibration = "sector_calibration"
	StateStory       = "story_synthesis"
	StateDecision    = "decision_synthesis"
	StateDone        = "done"
)

// Artifact file names.
const (
	ArtifactCandidates  = "A_candidates.json"
	ArtifactCalibration = "B_sector_calibration.json"
	ArtifactStory       = "B_story_analysis.json"
	ArtifactDecisions   = "C_decision_cards.json"
	ArtifactHeatmap     = "S_theme_heatmap.json"
	ArtifactTraceLog    = "Z_pipeline_trace_log.json"

	promptIODir = "story_prompt_io"
)

const newsLookbackDays = 10

// DataSource is the market data surface the pipeline reads from.
type DataSource interface {
	universe.Provider
	News(ctx context.Context, symbol, start, end string) (string, error)
	Fundamentals(ctx context.Context, symbol, tradeDate string) (string, error)
	Concepts(ctx context.Context, symbol string) ([]string, error)
}

// Options tunes one screen-pipeline run.
type Options struct {
	Rulebook    Rulebook
	MaxUniverse int
	EnableAI    bool
}

// Rulebook aliases the screener rulebook for wiring convenience.
type Rulebook = screener.Rulebook

// Summary is what a completed run reports back.
type Summary struct {
	TradeDate      string `json:"trade_date"`
	UniverseCount  int    `json:"universe_count"`
	CandidateCount int    `json:"candidate_count"`
	CardCount      int    `json:"card_count"`
	StoryMode      string `json:"story_mode"`
}

// calibrationArtifact is the B-stage body.
type calibrationArtifact struct {
	TradeDate  string                       `json:"trade_date"`
	Stats      map[string]sector.Stats      `json:"sector_stats"`
	Candidates []sector.CalibratedCandidate `json:"candidates"`
}

// Orchestrator drives one trade date through the linear screen pipeline:
// universe -> coarse screen -> sector calibration -> story -> decision.
// Each stage's artifact is persisted before the next stage starts.
// Re-running a trade date recomputes and overwrites from scratch; there is
// no checkpoint resume.
type Orchestrator struct {
	data     DataSource
	features *universe.FeatureAttacher
	screen   *screener.Screener
	sectors  *sector.Calibrator
	stories  story.Analyzer
	engine   *decision.Engine
	store    *artifacts.Store
	opts     Options
	log      zerolog.Logger
}

func NewOrchestrator(
	data DataSource,
	features *universe.FeatureAttacher,
	screen *screener.Screener,
	sectors *sector.Calibrator,
	stories story.Analyzer,
	engine *decision.Engine,
	store *artifacts.Store,
	opts Options,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		data:     data,
		features: features,
		screen:   screen,
		sectors:  sectors,
		stories:  stories,
		engine:   engine,
		store:    store,
		opts:     opts,
		log:      log.With().Str("component", "screen_pipeline").Logger(),
	}
}

// Run executes the full pipeline for one trade date.
func (o *Orchestrator) Run(ctx context.Context, tradeDate string) (*Summary, error) {
	dir := o.store.ScreenDir(tradeDate)
	trace := NewTraceLog()
	o.log.Info().Str("trade_date", tradeDate).Msg("Screen pipeline starting")

	// universe + features. Hard filters run in the screener so every drop
	// is accounted for in the A artifact.
	raw, err := o.data.Universe(ctx, tradeDate, marketdata.UniverseOptions{MaxItems: o.opts.MaxUniverse})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StateUniverse, err)
	}
	records, err := o.features.Attach(ctx, raw, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StateUniverse, err)
	}
	trace.Append(StateUniverse, len(raw), len(records))

	// coarse screen
	screened, err := o.screen.Screen(records, o.opts.Rulebook)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StateCoarse, err)
	}
	trace.Append(StateCoarse, len(records), len(screened.Candidates))
	if err := o.store.WriteJSON(dir, ArtifactCandidates, map[string]any{
		"trade_date": tradeDate,
		"candidates": screened.Candidates,
		"dropped":    screened.Dropped,
	}); err != nil {
		return nil, err
	}

	// sector calibration
	stats, calibrated := o.sectors.Calibrate(screened.Candidates, screened.Candidates)
	trace.Append(StateCalibration, len(screened.Candidates), len(calibrated))
	if err := o.store.WriteJSON(dir, ArtifactCalibration, calibrationArtifact{
		TradeDate:  tradeDate,
		Stats:      stats,
		Candidates: calibrated,
	}); err != nil {
		return nil, err
	}

	// story synthesis
	inputs, news := o.storyInputs(ctx, tradeDate, calibrated)
	storyRes, err := o.stories.Analyze(ctx, tradeDate, inputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StateStory, err)
	}
	trace.Append(StateStory, len(inputs), storyRes.Count)
	if err := o.store.WriteJSON(dir, ArtifactStory, storyRes); err != nil {
		return nil, err
	}
	o.persistPromptIO(dir, storyRes)

	// decision synthesis
	cardsOut, err := o.engine.Analyze(ctx, tradeDate, calibrated, storyRes, news, o.opts.EnableAI)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StateDecision, err)
	}
	trace.Append(StateDecision, len(calibrated), len(cardsOut.Cards))
	if err := o.store.WriteJSON(dir, ArtifactDecisions, cardsOut); err != nil {
		return nil, err
	}

	heat := BuildHeatmap(tradeDate, calibrated, cardsOut.Cards)
	if err := o.store.WriteJSON(dir, ArtifactHeatmap, heat); err != nil {
		return nil, err
	}

	trace.AppendNote(StateDone, "pipeline complete")
	if err := o.store.WriteJSON(dir, ArtifactTraceLog, trace.Entries()); err != nil {
		return nil, err
	}

	o.log.Info().
		Str("trade_date", tradeDate).
		Int("universe", len(raw)).
		Int("candidates", len(screened.Candidates)).
		Int("cards", len(cardsOut.Cards)).
		Msg("Screen pipeline complete")

	return &Summary{
		TradeDate:      tradeDate,
		UniverseCount:  len(raw),
		CandidateCount: len(screened.Candidates),
		CardCount:      len(cardsOut.Cards),
		StoryMode:      string(o.stories.Mode()),
	}, nil
}

// storyInputs fetches per-candidate text inputs. Fetch failures degrade to
// empty fields rather than failing the run; the story stage annotates gaps.
func (o *Orchestrator) storyInputs(ctx context.Context, tradeDate string, cands []sector.CalibratedCandidate) ([]story.Input, map[string]string) {
	start := newsStart(tradeDate)
	inputs := make([]story.Input, 0, len(cands))
	news := make(map[string]string, len(cands))
	for _, c := range cands {
		in := story.Input{
			Symbol:    c.Symbol,
			Name:      c.Name,
			Industry:  c.Industry,
			ChangePct: c.ChangePct,
			Concepts:  c.Concepts,
		}
		if text, err := o.data.News(ctx, c.Symbol, start, tradeDate); err == nil {
			in.News = text
		} else {
			o.log.Warn().Err(err).Str("symbol", c.Symbol).Msg("News fetch failed, continuing without")
		}
		if text, err := o.data.Fundamentals(ctx, c.Symbol, tradeDate); err == nil {
			in.Fundamentals = text
		}
		if concepts, err := o.data.Concepts(ctx, c.Symbol); err == nil && len(concepts) > 0 {
			in.Concepts = concepts
		}
		news[c.Symbol] = in.News
		inputs = append(inputs, in)
	}
	return inputs, news
}

// persistPromptIO writes the per-symbol stage exchanges next to the story
// artifact. Best effort; a write failure is logged, not fatal.
func (o *Orchestrator) persistPromptIO(dir string, res *story.Result) {
	for symbol, rec := range res.BySymbol {
		if len(rec.PromptIO) == 0 {
			continue
		}
		symDir := filepath.Join(dir, promptIODir, symbol)
		for _, io := range rec.PromptIO {
			if err := o.store.WriteText(symDir, io.Stage+"_input.txt", io.Input); err != nil {
				o.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist prompt input")
				continue
			}
			if err := o.store.WriteText(symDir, io.Stage+"_output.txt", io.Output); err != nil {
				o.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist prompt output")
			}
		}
	}
}

func newsStart(tradeDate string) string {
	t, err := time.Parse("2006-01-02", tradeDate)
	if err != nil {
		return tradeDate
	}
	return t.AddDate(0, 0, -newsLookbackDays).Format("2006-01-02")
}
