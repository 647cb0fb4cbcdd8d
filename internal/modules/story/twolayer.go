package story

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/petrel-quant/petrel/internal/clients/textgen"
	"github.com/petrel-quant/petrel/internal/domain"
)

// TwoLayerAnalyzer runs the three-stage narrative machine per symbol:
// narrative -> timeline -> synthesis -> done | failed. A stage error
// terminates only that symbol; the batch carries on with a fallback record.
type TwoLayerAnalyzer struct {
	client  textgen.Client
	workers int
	log     zerolog.Logger
}

func NewTwoLayerAnalyzer(client textgen.Client, workers int, log zerolog.Logger) *TwoLayerAnalyzer {
	if workers < 1 {
		workers = 1
	}
	return &TwoLayerAnalyzer{
		client:  client,
		workers: workers,
		log:     log.With().Str("component", "story_two_layer").Logger(),
	}
}

func (a *TwoLayerAnalyzer) Mode() Mode { return ModeTwoLayer }

func (a *TwoLayerAnalyzer) Analyze(ctx context.Context, tradeDate string, inputs []Input) (*Result, error) {
	records := make([]Record, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = a.runMachine(gctx, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		TradeDate: tradeDate,
		Mode:      ModeTwoLayer,
		BySymbol:  make(map[string]Record, len(records)),
	}
	failed := 0
	for _, rec := range records {
		res.BySymbol[rec.Symbol] = rec
		if rec.State == "failed" {
			failed++
		}
	}
	res.Count = len(res.BySymbol)
	a.log.Info().
		Str("trade_date", tradeDate).
		Int("count", res.Count).
		Int("failed", failed).
		Msg("Two-layer story analysis complete")
	return res, nil
}

// runMachine drives one symbol through the three stages. Any error lands
// the machine in the failed state with a minimal Weak-grade card.
func (a *TwoLayerAnalyzer) runMachine(ctx context.Context, in Input) Record {
	evidence := ParseEvidence(in.News)
	evidenceIDs := domain.EvidenceIDSet(evidence)
	doc := buildDocument(in, evidence)

	rec := Record{Symbol: in.Symbol, Name: in.Name}

	var narrative NarrativeOutput
	if err := a.stage(ctx, &rec, StageNarrative, narrativePrompt(doc), &narrative); err != nil {
		return a.fail(rec, in, evidence, fmt.Errorf("narrative stage: %w", err))
	}
	if err := validateNarrative(&narrative, evidenceIDs); err != nil {
		return a.fail(rec, in, evidence, err)
	}
	rec.Narrative = &narrative

	var timeline TimelineOutput
	if err := a.stage(ctx, &rec, StageTimeline, timelinePrompt(doc, &narrative), &timeline); err != nil {
		return a.fail(rec, in, evidence, fmt.Errorf("timeline stage: %w", err))
	}
	if err := validateTimeline(&timeline, evidenceIDs); err != nil {
		return a.fail(rec, in, evidence, err)
	}
	rec.Timeline = &timeline

	var card StoryCard
	if err := a.stage(ctx, &rec, StageSynthesis, synthesisPrompt(doc, &narrative, &timeline), &card); err != nil {
		return a.fail(rec, in, evidence, fmt.Errorf("synthesis stage: %w", err))
	}
	if err := validateCard(&card, evidenceIDs); err != nil {
		return a.fail(rec, in, evidence, err)
	}
	card.EvidenceList = evidence

	rec.Card = &card
	rec.State = "done"
	rec.Payload = derivePayload(&card, evidence)
	return rec
}

// stage issues one collaborator call and parses its JSON output, recording
// the raw exchange either way.
func (a *TwoLayerAnalyzer) stage(ctx context.Context, rec *Record, name, prompt string, out any) error {
	text, err := a.client.Generate(ctx, textgen.Request{
		System: systemPrompt,
		Prompt: prompt,
	})
	rec.PromptIO = append(rec.PromptIO, StageIO{Stage: name, Input: prompt, Output: text})
	if err != nil {
		return err
	}
	return textgen.ExtractJSON(text, out)
}

func (a *TwoLayerAnalyzer) fail(rec Record, in Input, evidence []domain.Evidence, err error) Record {
	a.log.Warn().Err(err).Str("symbol", in.Symbol).Msg("Story machine failed, emitting fallback card")
	card := fallbackCard(in, err)
	card.EvidenceList = evidence
	rec.State = "failed"
	rec.Err = err.Error()
	rec.Card = card
	rec.Payload = derivePayload(card, evidence)
	return rec
}

// fallbackCard is the minimal card emitted when a machine fails. Weak
// grade, the error surfaced as a data gap.
func fallbackCard(in Input, err error) *StoryCard {
	return &StoryCard{
		MarketImpression: fmt.Sprintf("%s 当日上涨 %.2f%%，叙事分析未完成", in.Name, in.ChangePct),
		OneLiner:         "",
		CompanyBasics:    orUnknown(in.Industry),
		Evidence:         EvidenceAssessment{Grade: GradeWeak},
		Notes: CardNotes{
			DataGaps: []string{fmt.Sprintf("analysis failed: %v", err)},
		},
	}
}

// derivePayload maps a story card onto the mode-agnostic payload. The
// hardness grades share vocabulary with the simple analyzer's heat levels.
func derivePayload(card *StoryCard, evidence []domain.Evidence) Payload {
	raw, _ := json.Marshal(card)
	heat := HeatLow
	switch card.Evidence.Grade {
	case GradeStrong:
		heat = HeatHigh
	case GradeMedium:
		heat = HeatMedium
	}
	return Payload{
		NewsCount:           len(evidence),
		HeatLevel:           heat,
		IsMainlineCandidate: card.OneLiner != "",
		HasRiskAlert:        len(card.DowngradeRules) > 0,
		RawLength:           len(raw),
		OneLiner:            card.OneLiner,
	}
}
