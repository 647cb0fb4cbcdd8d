package screener

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-quant/petrel/internal/domain"
	"github.com/petrel-quant/petrel/pkg/logger"
)

func rec(symbol string, changePct float64, st bool) domain.Record {
	return domain.Record{
		UniverseRecord: domain.UniverseRecord{
			Symbol:    symbol,
			Name:      symbol,
			Industry:  "机器人零部件",
			ChangePct: changePct,
			IsST:      st,
		},
		FeatureSet: domain.FeatureSet{
			LastClose: 20.0, MA5: 19.0, MA10: 18.0, MA20: 17.0,
			VolRatio: 1.5, PositionScore: 80, TrendScore: 100,
			VolumeScore: 35, BreakoutScore: 100, StyleScore: 50,
		},
	}
}

func TestScreenPartition(t *testing.T) {
	records := []domain.Record{
		rec("600001", 9.8, false),
		rec("600002", 3.0, false),  // below threshold
		rec("600003", 7.0, true),   // ST
		rec("300001", 7.0, false),  // not main board
	}

	s := New(logger.Nop())
	res, err := s.Screen(records, DefaultRulebook())
	require.NoError(t, err)

	assert.Len(t, res.Candidates, 1)
	assert.Len(t, res.Dropped, 3)
	assert.Equal(t, "600001", res.Candidates[0].Symbol)
	for _, c := range res.Candidates {
		assert.NotEmpty(t, c.ReasonTags)
	}
}

func TestFirstFailingReasonOnly(t *testing.T) {
	// fails both the change threshold and the ST filter; only the first
	// failing filter may be recorded
	records := []domain.Record{rec("600004", 1.0, true)}

	s := New(logger.Nop())
	res, err := s.Screen(records, DefaultRulebook())
	require.NoError(t, err)

	require.Len(t, res.Dropped, 1)
	assert.Equal(t, []string{DropChangeBelowThreshold}, res.Dropped[0].DropReasons)
}

func TestHardFilterOrder(t *testing.T) {
	tests := []struct {
		name   string
		record domain.Record
		reason string
	}{
		{"change below threshold", rec("600005", 4.9, false), DropChangeBelowThreshold},
		{"st excluded", rec("600006", 6.0, true), DropSTExcluded},
		{"star market", rec("688001", 6.0, false), DropNotMainBoard},
		{"chinext", rec("300002", 6.0, false), DropNotMainBoard},
		{"bse", rec("830001", 6.0, false), DropNotMainBoard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := hardFilter(tt.record, DefaultRulebook().HardFilters)
			assert.False(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCandidatesOrderedByScore(t *testing.T) {
	weak := rec("600007", 6.0, false)
	weak.PositionScore = 10
	weak.TrendScore = 35
	weak.BreakoutScore = 0
	strong := rec("600008", 9.0, false)

	s := New(logger.Nop())
	res, err := s.Screen([]domain.Record{weak, strong}, DefaultRulebook())
	require.NoError(t, err)

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "600008", res.Candidates[0].Symbol)
	assert.Greater(t, res.Candidates[0].CompositeScore, res.Candidates[1].CompositeScore)
}

func TestTopNDoesNotTruncate(t *testing.T) {
	var records []domain.Record
	for i := 0; i < 10; i++ {
		records = append(records, rec(
			// distinct main-board symbols
			"60001"+string(rune('0'+i)), 6.0, false))
	}

	rb := DefaultRulebook()
	rb.TopN = 3

	s := New(logger.Nop())
	res, err := s.Screen(records, rb)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 10)
}

func TestStructuralTags(t *testing.T) {
	r := rec("600009", 9.0, false)
	r.High = 20.0 // last close at the rolling high
	tags := structuralTags(r)
	assert.Contains(t, tags, TagBreakout)
	assert.Contains(t, tags, TagVolumeExpansion)
	assert.Contains(t, tags, TagTrendAligned)
	assert.Contains(t, tags, TagHighPosition)
	assert.Contains(t, tags, TagConceptPresent)
	assert.NotContains(t, tags, TagBasicStructure)
}

func TestBasicStructureFallbackTag(t *testing.T) {
	r := domain.Record{
		UniverseRecord: domain.UniverseRecord{Symbol: "600010", ChangePct: 4.0},
		FeatureSet:     domain.FeatureSet{LastClose: 10, MA5: 11, MA10: 12, MA20: 13, VolRatio: 0.9},
	}
	assert.Equal(t, []string{TagBasicStructure}, structuralTags(r))
}

func TestInvalidRulebookRejected(t *testing.T) {
	rb := DefaultRulebook()
	rb.Weights = Weights{}

	s := New(logger.Nop())
	_, err := s.Screen(nil, rb)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestRulebookWeightsMustSumToOne(t *testing.T) {
	rb := DefaultRulebook()
	rb.Weights = Weights{
		PositionScore: 0.1,
		TrendScore:    0.1,
		VolumeScore:   0.1,
		BreakoutScore: 0.1,
		StyleScore:    0.1,
		ConceptScore:  0.1,
	}

	err := rb.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Contains(t, err.Error(), "0.60")

	// small rounding drift stays within tolerance
	rb.Weights.ConceptScore = 0.495
	assert.NoError(t, rb.Validate())
}

func TestLoadRulebookMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rulebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hard_filters:\n  min_change_pct: 7.0\n  exclude_st: true\n  main_board_only: true\n"), 0644))

	rb, err := LoadRulebook(path)
	require.NoError(t, err)
	assert.Equal(t, 7.0, rb.HardFilters.MinChangePct)
	// untouched sections keep their defaults
	assert.Equal(t, 0.20, rb.Weights.TrendScore)
}

func TestLoadRulebookMissingFileUsesDefaults(t *testing.T) {
	rb, err := LoadRulebook(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRulebook(), rb)
}

func TestLoadRulebookMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rulebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights: ["), 0644))

	_, err := LoadRulebook(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
}
