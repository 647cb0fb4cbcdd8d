package iteration

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/artifacts"
	"github.com/petrel-quant/petrel/internal/clients/marketdata"
	"github.com/petrel-quant/petrel/internal/modules/decision"
	"github.com/petrel-quant/petrel/internal/modules/pipeline"
	"github.com/petrel-quant/petrel/internal/modules/sector"
	"github.com/petrel-quant/petrel/pkg/formulas"
)

// Daily behavior tags.
const (
	TagStrongUp     = "strong_up"
	TagMildUp       = "mild_up"
	TagSharpDown    = "sharp_down"
	TagPullback     = "pullback"
	TagSideways     = "sideways"
	TagVolExpand    = "volume_expand"
	TagVolShrink    = "volume_shrink"
	TagBreakout     = "price_breakout"
	TagBreakdown    = "price_breakdown"
)

// Removal reasons.
const (
	RemoveDrawdown        = "max_drawdown_exceeded"
	RemoveConsecutiveDown = "consecutive_down_days"
)

const (
	drawdownRemoveFloor = -8.0
	trackWindowDays     = 10
	drawdownHorizon     = 3
)

// DayNote is one post-selection trading day observation.
type DayNote struct {
	Date      string   `json:"date"`
	ChangePct float64  `json:"change_pct"`
	Reason    string   `json:"reason"`
	Tags      []string `json:"tags"`
}

// Metric is the tracking record for one selected symbol. Return pointers
// are nil when the market has not produced that day yet or data is missing.
type Metric struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Sector        string    `json:"sector"`
	Conclusion    string    `json:"conclusion_type,omitempty"`
	Stage         string    `json:"stage,omitempty"`
	EvidenceChain []string  `json:"evidence_chain,omitempty"`
	CardInfoGaps  []string  `json:"info_gaps,omitempty"`
	SourceDate    string    `json:"source_date"`
	SourceClose   float64   `json:"source_close"`
	T1Return      *float64  `json:"t1_return_pct"`
	T2Return      *float64  `json:"t2_return_pct"`
	T3Return      *float64  `json:"t3_return_pct"`
	MaxDrawdown   *float64  `json:"max_drawdown_pct"`
	Days          []DayNote `json:"days"`
	ShouldRemove  bool      `json:"should_remove"`
	RemoveReason  string    `json:"remove_reason,omitempty"`
	Note          string    `json:"note,omitempty"`
}

// HistorySource supplies daily bars for tracking.
type HistorySource interface {
	DailyHistory(ctx context.Context, symbol, start, end string) ([]marketdata.Bar, error)
}

// Tracker measures how past selections behaved after selection day.
type Tracker struct {
	data  HistorySource
	store *artifacts.Store
	log   zerolog.Logger
}

func NewTracker(data HistorySource, store *artifacts.Store, log zerolog.Logger) *Tracker {
	return &Tracker{
		data:  data,
		store: store,
		log:   log.With().Str("component", "tracker").Logger(),
	}
}

// Track loads selections from the most recent lookback screen runs strictly
// before asOf and computes their forward metrics. Missing price data yields
// a "data_insufficient" note, never an error.
func (t *Tracker) Track(ctx context.Context, asOf string, lookback int) ([]Metric, error) {
	dates, err := t.store.ScreenDates(asOf)
	if err != nil {
		return nil, err
	}
	// selections made on asOf itself have no forward days yet
	for len(dates) > 0 && dates[len(dates)-1] >= asOf {
		dates = dates[:len(dates)-1]
	}
	if len(dates) > lookback {
		dates = dates[len(dates)-lookback:]
	}

	var metrics []Metric
	for _, date := range dates {
		var cal struct {
			Candidates []sector.CalibratedCandidate `json:"candidates"`
		}
		if err := t.store.ReadJSON(t.store.ScreenDir(date), pipeline.ArtifactCalibration, &cal); err != nil {
			t.log.Warn().Err(err).Str("trade_date", date).Msg("Calibration artifact unreadable, skipping date")
			continue
		}
		cards := t.loadCards(date)
		for _, cand := range cal.Candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			m := t.trackOne(ctx, date, cand)
			if card, ok := cards[cand.Symbol]; ok {
				m.Conclusion = card.ConclusionType
				m.Stage = card.Stage
				m.EvidenceChain = capStrings(card.EvidenceChain, 3)
				m.CardInfoGaps = capStrings(card.InfoGaps, 3)
			}
			metrics = append(metrics, m)
		}
	}

	t.log.Info().Str("as_of", asOf).Int("tracked", len(metrics)).Msg("Tracking complete")
	return metrics, nil
}

// loadCards maps symbol to the decision card for a screen date, so the
// tracking artifact snapshots what was decided alongside how it played out.
// A missing or unreadable card artifact yields an empty map; tracking
// proceeds on calibration data alone.
func (t *Tracker) loadCards(date string) map[string]decision.DecisionCard {
	var out decision.Output
	if err := t.store.ReadJSON(t.store.ScreenDir(date), pipeline.ArtifactDecisions, &out); err != nil {
		t.log.Debug().Err(err).Str("trade_date", date).Msg("Decision artifact unreadable")
		return nil
	}
	cards := make(map[string]decision.DecisionCard, len(out.Cards))
	for _, c := range out.Cards {
		cards[c.Symbol] = c
	}
	return cards
}

func capStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func (t *Tracker) trackOne(ctx context.Context, sourceDate string, cand sector.CalibratedCandidate) Metric {
	m := Metric{
		Symbol:      cand.Symbol,
		Name:        cand.Name,
		Sector:      cand.Sector,
		SourceDate:  sourceDate,
		SourceClose: cand.LastClose,
	}
	if m.SourceClose <= 0 {
		m.SourceClose = cand.Close
	}

	end := addDays(sourceDate, trackWindowDays)
	bars, err := t.data.DailyHistory(ctx, cand.Symbol, sourceDate, end)
	if err != nil || m.SourceClose <= 0 {
		m.Note = "data_insufficient"
		return m
	}

	// keep strictly post-selection bars
	var fwd []marketdata.Bar
	for _, b := range bars {
		if b.Date > sourceDate {
			fwd = append(fwd, b)
		}
	}
	if len(fwd) == 0 {
		m.Note = "data_insufficient"
		return m
	}

	closes := make([]float64, len(fwd))
	for i, b := range fwd {
		closes[i] = b.Close
	}
	returns := formulas.ForwardReturns(m.SourceClose, closes, 3)
	for i := range returns {
		returns[i] = round2(returns[i])
	}
	if len(returns) > 0 {
		m.T1Return = &returns[0]
	}
	if len(returns) > 1 {
		m.T2Return = &returns[1]
	}
	if len(returns) > 2 {
		m.T3Return = &returns[2]
	}

	prevVol := 0.0
	for _, b := range bars {
		if b.Date == sourceDate {
			prevVol = b.Volume
		}
	}
	// day notes and the removal rule cover the fixed 3-day horizon only
	horizon := fwd
	if len(horizon) > drawdownHorizon {
		horizon = horizon[:drawdownHorizon]
	}
	downStreak := 0
	prevClose := m.SourceClose
	for _, b := range horizon {
		if b.Close < prevClose {
			downStreak++
		} else {
			downStreak = 0
		}
		m.Days = append(m.Days, dayNote(b, prevVol, m.SourceClose))
		prevClose = b.Close
		prevVol = b.Volume

		if !m.ShouldRemove && downStreak >= 2 {
			m.ShouldRemove = true
			m.RemoveReason = RemoveConsecutiveDown
		}
	}

	if mdd := formulas.SourceDrawdown(m.SourceClose, closes, drawdownHorizon); mdd != nil {
		rounded := round2(*mdd)
		m.MaxDrawdown = &rounded
		if rounded <= drawdownRemoveFloor {
			m.ShouldRemove = true
			m.RemoveReason = RemoveDrawdown
		}
	}
	return m
}

// dayNote classifies one forward day by change, volume and price level.
func dayNote(b marketdata.Bar, prevVol, sourceClose float64) DayNote {
	note := DayNote{Date: b.Date, ChangePct: b.ChangePct}

	switch {
	case b.ChangePct >= 5:
		note.Reason = TagStrongUp
	case b.ChangePct > 0:
		note.Reason = TagMildUp
	case b.ChangePct <= -8:
		note.Reason = TagSharpDown
	case b.ChangePct <= -3:
		note.Reason = TagPullback
	default:
		note.Reason = TagSideways
	}
	note.Tags = append(note.Tags, note.Reason)

	if prevVol > 0 {
		ratio := b.Volume / prevVol
		if ratio >= 1.3 {
			note.Tags = append(note.Tags, TagVolExpand)
		} else if ratio <= 0.8 {
			note.Tags = append(note.Tags, TagVolShrink)
		}
	}
	if sourceClose > 0 {
		switch {
		case b.Close >= sourceClose*1.03:
			note.Tags = append(note.Tags, TagBreakout)
		case b.Close <= sourceClose*0.97:
			note.Tags = append(note.Tags, TagBreakdown)
		}
	}
	return note
}

func addDays(date string, n int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format("2006-01-02")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
