package screener

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/clients/marketdata"
	"github.com/petrel-quant/petrel/internal/domain"
)

// Drop reasons recorded on rejected records. Only the first failing filter
// is recorded; a record is dropped on first failure.
const (
	DropChangeBelowThreshold = "change_pct_below_threshold"
	DropSTExcluded           = "st_excluded"
	DropNotMainBoard         = "not_main_board"
)

// Reason tags attached to surviving candidates.
const (
	TagBreakout        = "breakout"
	TagVolumeExpansion = "volume_expansion"
	TagTrendAligned    = "trend_aligned"
	TagHighPosition    = "high_position"
	TagConceptPresent  = "concept_present"
	TagBasicStructure  = "basic_structure"
)

// Result partitions the input records. Candidates and Dropped are disjoint
// and together cover the input set; every candidate has at least one tag.
type Result struct {
	Candidates []domain.Candidate     `json:"candidates"`
	Dropped    []domain.DroppedRecord `json:"dropped"`
}

// Screener applies the coarse hard filters and structural tagging.
type Screener struct {
	log zerolog.Logger
}

// New creates a coarse screener
func New(log zerolog.Logger) *Screener {
	return &Screener{log: log.With().Str("component", "coarse_screener").Logger()}
}

// Screen partitions feature-attached records into candidates and dropped.
// Candidates are ordered by weighted composite score, descending; the
// rulebook's TopN never truncates the set.
func (s *Screener) Screen(records []domain.Record, rb Rulebook) (*Result, error) {
	if err := rb.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		Candidates: make([]domain.Candidate, 0, len(records)),
		Dropped:    make([]domain.DroppedRecord, 0),
	}
	for _, rec := range records {
		if reason, ok := hardFilter(rec, rb.HardFilters); !ok {
			result.Dropped = append(result.Dropped, domain.DroppedRecord{
				Record:      rec,
				DropReasons: []string{reason},
			})
			continue
		}
		result.Candidates = append(result.Candidates, domain.Candidate{
			Record:         rec,
			ReasonTags:     structuralTags(rec),
			CompositeScore: compositeScore(rec, rb.Weights),
		})
	}

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		return result.Candidates[i].CompositeScore > result.Candidates[j].CompositeScore
	})

	if err := checkPartition(records, result); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("input", len(records)).
		Int("candidates", len(result.Candidates)).
		Int("dropped", len(result.Dropped)).
		Msg("Coarse screen complete")

	return result, nil
}

// hardFilter returns the first failing drop reason, applied in fixed order.
func hardFilter(rec domain.Record, hf HardFilters) (string, bool) {
	if rec.ChangePct <= hf.MinChangePct {
		return DropChangeBelowThreshold, false
	}
	if hf.ExcludeST && rec.IsST {
		return DropSTExcluded, false
	}
	if hf.MainBoardOnly && !marketdata.IsMainBoard(rec.Symbol) {
		return DropNotMainBoard, false
	}
	return "", true
}

// structuralTags derives reason tags from the feature set. Every survivor
// gets at least the basic_structure tag.
func structuralTags(rec domain.Record) []string {
	var tags []string
	if rec.High > 0 && rec.LastClose >= rec.High*0.995 {
		tags = append(tags, TagBreakout)
	}
	if rec.VolRatio >= 1.2 {
		tags = append(tags, TagVolumeExpansion)
	}
	if rec.LastClose > 0 && rec.LastClose > rec.MA5 && rec.MA5 >= rec.MA10 && rec.MA10 >= rec.MA20 {
		tags = append(tags, TagTrendAligned)
	}
	if rec.LastClose >= rec.MA20 && rec.ChangePct >= 5.0 {
		tags = append(tags, TagHighPosition)
	}
	if rec.Industry != "" || len(rec.Concepts) > 0 {
		tags = append(tags, TagConceptPresent)
	}
	if len(tags) == 0 {
		tags = append(tags, TagBasicStructure)
	}
	return tags
}

// compositeScore weights the 0-100 component scores; concept presence is a
// binary component. Used only for presentation order.
func compositeScore(rec domain.Record, w Weights) float64 {
	conceptScore := 0.0
	if rec.Industry != "" || len(rec.Concepts) > 0 {
		conceptScore = 100.0
	}
	return rec.PositionScore*w.PositionScore +
		rec.TrendScore*w.TrendScore +
		rec.VolumeScore*w.VolumeScore +
		rec.BreakoutScore*w.BreakoutScore +
		rec.StyleScore*w.StyleScore +
		conceptScore*w.ConceptScore
}

// checkPartition asserts candidates and dropped are disjoint and cover the
// input set. A violation is an internal defect and aborts the run.
func checkPartition(input []domain.Record, result *Result) error {
	seen := make(map[string]string, len(input))
	for _, c := range result.Candidates {
		seen[c.Symbol] = "candidate"
		if len(c.ReasonTags) == 0 {
			return fmt.Errorf("%w: candidate %s has no reason tags", domain.ErrPartitionInvariant, c.Symbol)
		}
	}
	for _, d := range result.Dropped {
		if seen[d.Symbol] == "candidate" {
			return fmt.Errorf("%w: %s appears in both candidates and dropped", domain.ErrPartitionInvariant, d.Symbol)
		}
		seen[d.Symbol] = "dropped"
	}
	if len(result.Candidates)+len(result.Dropped) != len(input) {
		return fmt.Errorf("%w: partition size %d+%d does not match input %d",
			domain.ErrPartitionInvariant, len(result.Candidates), len(result.Dropped), len(input))
	}
	for _, rec := range input {
		if seen[rec.Symbol] == "" {
			return fmt.Errorf("%w: %s missing from partition", domain.ErrPartitionInvariant, rec.Symbol)
		}
	}
	return nil
}
