package screener

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/petrel-quant/petrel/internal/domain"
)

const weightSumTolerance = 0.01

// Weights are the composite-score component weights.
type Weights struct {
	PositionScore float64 `yaml:"position_score" json:"position_score"`
	TrendScore    float64 `yaml:"trend_score" json:"trend_score"`
	VolumeScore   float64 `yaml:"volume_score" json:"volume_score"`
	BreakoutScore float64 `yaml:"breakout_score" json:"breakout_score"`
	StyleScore    float64 `yaml:"style_score" json:"style_score"`
	ConceptScore  float64 `yaml:"concept_score" json:"concept_score"`
}

// HardFilters are the coarse-screen rejection thresholds, applied in a
// fixed order: change threshold, then ST exclusion, then board exclusion.
type HardFilters struct {
	MinChangePct  float64 `yaml:"min_change_pct" json:"min_change_pct"`
	ExcludeST     bool    `yaml:"exclude_st" json:"exclude_st"`
	MainBoardOnly bool    `yaml:"main_board_only" json:"main_board_only"`
}

// Rulebook drives the coarse screen. TopN is accepted for compatibility but
// never truncates the candidate set; ranking only affects presentation order.
type Rulebook struct {
	Weights     Weights     `yaml:"weights" json:"weights"`
	HardFilters HardFilters `yaml:"hard_filters" json:"hard_filters"`
	TopN        int         `yaml:"top_n" json:"top_n"`
}

// DefaultRulebook returns the MVP rulebook.
func DefaultRulebook() Rulebook {
	return Rulebook{
		Weights: Weights{
			PositionScore: 0.20,
			TrendScore:    0.20,
			VolumeScore:   0.20,
			BreakoutScore: 0.15,
			StyleScore:    0.10,
			ConceptScore:  0.15,
		},
		HardFilters: HardFilters{
			MinChangePct:  5.0,
			ExcludeST:     true,
			MainBoardOnly: true,
		},
		TopN: 30,
	}
}

// LoadRulebook reads a YAML rulebook, merging file values over defaults.
// An empty path yields the defaults. A malformed rulebook is fatal.
func LoadRulebook(path string) (Rulebook, error) {
	rb := DefaultRulebook()
	if path == "" {
		return rb, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rb, nil
		}
		return Rulebook{}, fmt.Errorf("%w: reading rulebook %s: %v", domain.ErrConfig, path, err)
	}
	if err := yaml.Unmarshal(data, &rb); err != nil {
		return Rulebook{}, fmt.Errorf("%w: parsing rulebook %s: %v", domain.ErrConfig, path, err)
	}
	if err := rb.Validate(); err != nil {
		return Rulebook{}, err
	}
	return rb, nil
}

// Validate rejects rulebooks that cannot produce a meaningful screen.
func (rb Rulebook) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"position_score", rb.Weights.PositionScore},
		{"trend_score", rb.Weights.TrendScore},
		{"volume_score", rb.Weights.VolumeScore},
		{"breakout_score", rb.Weights.BreakoutScore},
		{"style_score", rb.Weights.StyleScore},
		{"concept_score", rb.Weights.ConceptScore},
	}
	sum := 0.0
	for _, w := range weights {
		if w.value < 0 {
			return fmt.Errorf("%w: rulebook weight %s is negative", domain.ErrConfig, w.name)
		}
		sum += w.value
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: rulebook weights sum to %.2f, want 1.0", domain.ErrConfig, sum)
	}
	if rb.HardFilters.MinChangePct < 0 {
		return fmt.Errorf("%w: rulebook min_change_pct is negative", domain.ErrConfig)
	}
	return nil
}
