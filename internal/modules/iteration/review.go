package iteration

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/petrel-quant/petrel/pkg/formulas"
)

// Proposal types.
const (
	TypeRule   = "rule"
	TypePrompt = "prompt"
)

// Proposal statuses. The generator only ever emits StatusProposed; the
// other two are set by the review endpoint.
const (
	StatusProposed = "proposed"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Pattern thresholds.
const (
	drawdownMeanTrigger = -8.0
	winRateFloor        = 0.45
	removalRateTrigger  = 0.35
	minRemovalsTrigger  = 2
)

// Proposal is one suggested adjustment to the screening rulebook or the
// synthesis prompts, derived purely from tracking statistics.
type Proposal struct {
	ID         string         `json:"id"`
	TradeDate  string         `json:"trade_date"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Suggestion string         `json:"suggestion"`
	Evidence   map[string]any `json:"evidence"`
	Confidence float64        `json:"confidence"`
	Status     string         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Generator scans tracking metrics for recurring failure patterns. Each
// fired pattern yields exactly one proposal; a quiet scan yields none.
type Generator struct {
	minValidT3 int
	log        zerolog.Logger
}

func NewGenerator(minValidT3 int, log zerolog.Logger) *Generator {
	if minValidT3 < 1 {
		minValidT3 = 5
	}
	return &Generator{
		minValidT3: minValidT3,
		log:        log.With().Str("component", "patch_generator").Logger(),
	}
}

// Generate runs the pattern scan over one iteration's metrics.
func (g *Generator) Generate(tradeDate string, metrics []Metric) []Proposal {
	var proposals []Proposal

	var drawdowns []float64
	var t3 []float64
	removals := 0
	for _, m := range metrics {
		if m.MaxDrawdown != nil {
			drawdowns = append(drawdowns, *m.MaxDrawdown)
		}
		if m.T3Return != nil {
			t3 = append(t3, *m.T3Return)
		}
		if m.ShouldRemove {
			removals++
		}
	}

	if len(drawdowns) > 0 {
		if mean := stat.Mean(drawdowns, nil); mean <= drawdownMeanTrigger {
			excess := math.Abs(mean) - math.Abs(drawdownMeanTrigger)
			proposals = append(proposals, g.proposal(tradeDate, TypeRule,
				"收紧回撤过滤",
				fmt.Sprintf("近期入选标的 3 日平均最大回撤 %.2f%%，建议在粗筛中加入回撤敏感的仓位分过滤或下调 position 权重", mean),
				map[string]any{"mean_drawdown_pct": mean, "samples": len(drawdowns)},
				confidence(len(drawdowns), excess)))
		}
	}

	if len(t3) >= g.minValidT3 {
		winRate := formulas.WinRate(t3)
		if winRate < winRateFloor {
			shortfall := (winRateFloor - winRate) * 100
			proposals = append(proposals, g.proposal(tradeDate, TypePrompt,
				"调整评分权重提示",
				fmt.Sprintf("T+3 胜率 %.2f 低于 %.2f，建议在决策提示词中强化持续性验证并下调情绪型结论的权重", winRate, winRateFloor),
				map[string]any{"t3_win_rate": winRate, "samples": len(t3)},
				confidence(len(t3), shortfall)))
		}
	} else {
		proposals = append(proposals, g.proposal(tradeDate, TypePrompt,
			"样本不足，暂缓调整",
			fmt.Sprintf("有效 T+3 样本仅 %d（需 %d），建议本轮不做任何规则或提示词调整", len(t3), g.minValidT3),
			map[string]any{"valid_t3_samples": len(t3), "required": g.minValidT3},
			0.9))
	}

	if threshold := int(math.Max(minRemovalsTrigger, removalRateTrigger*float64(len(metrics)))); len(metrics) > 0 && removals > threshold {
		rate := float64(removals) / float64(len(metrics))
		proposals = append(proposals, g.proposal(tradeDate, TypeRule,
			"复核移除机制",
			fmt.Sprintf("%d/%d 个标的触发移除（%.0f%%），建议复核连续下跌与回撤阈值是否过松或选股过于激进", removals, len(metrics), rate*100),
			map[string]any{"removals": removals, "total": len(metrics)},
			confidence(removals, rate*10)))
	}

	g.log.Info().
		Str("trade_date", tradeDate).
		Int("metrics", len(metrics)).
		Int("proposals", len(proposals)).
		Msg("Pattern scan complete")
	return proposals
}

func (g *Generator) proposal(tradeDate, typ, title, suggestion string, evidence map[string]any, conf float64) Proposal {
	return Proposal{
		ID:         uuid.NewString(),
		TradeDate:  tradeDate,
		Type:       typ,
		Title:      title,
		Suggestion: suggestion,
		Evidence:   evidence,
		Confidence: conf,
		Status:     StatusProposed,
		CreatedAt:  time.Now().UTC(),
	}
}

// confidence grows with sample size and effect magnitude, capped below 1.
func confidence(n int, effect float64) float64 {
	c := 0.4 + 0.015*float64(n) + 0.02*effect
	return math.Min(math.Max(c, 0.0), 0.95)
}
