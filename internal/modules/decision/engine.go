package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/petrel-quant/petrel/internal/clients/textgen"
	"github.com/petrel-quant/petrel/internal/modules/sector"
	"github.com/petrel-quant/petrel/internal/modules/story"
)

const evidenceChainLen = 3

var validate = validator.New(validator.WithRequiredStructEnabled())

// Trace records how each card was produced.
type Trace struct {
	Mode string `json:"mode"` // ai | fallback
	Err  string `json:"error,omitempty"`
}

// Output is the decision stage artifact body. InfoGaps aggregates each
// card's gaps keyed by symbol.
type Output struct {
	TradeDate string              `json:"trade_date"`
	Cards     []DecisionCard      `json:"cards"`
	FiveLines map[string]string   `json:"five_line_cards"`
	Traces    map[string]Trace    `json:"traces"`
	InfoGaps  map[string][]string `json:"info_gaps"`
}

// Engine synthesizes decision cards from the calibrated candidates and
// their story payloads.
type Engine struct {
	client  textgen.Client
	workers int
	log     zerolog.Logger
}

func NewEngine(client textgen.Client, workers int, log zerolog.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		client:  client,
		workers: workers,
		log:     log.With().Str("component", "decision_engine").Logger(),
	}
}

// Analyze produces one card per candidate. With enableAI each symbol gets a
// collaborator call; any failure degrades that symbol to the rule fallback.
// news holds the raw excerpt per symbol and may be sparse.
func (e *Engine) Analyze(ctx context.Context, tradeDate string, cands []sector.CalibratedCandidate, stories *story.Result, news map[string]string, enableAI bool) (*Output, error) {
	cards := make([]DecisionCard, len(cands))
	traces := make([]Trace, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, cand := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var storyRec story.Record
			if stories != nil {
				storyRec = stories.BySymbol[cand.Symbol]
			}
			cards[i], traces[i] = e.analyzeOne(gctx, cand, storyRec, news[cand.Symbol], enableAI)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Output{
		TradeDate: tradeDate,
		Cards:     cards,
		FiveLines: make(map[string]string, len(cards)),
		Traces:    make(map[string]Trace, len(cards)),
		InfoGaps:  make(map[string][]string, len(cards)),
	}
	aiCount := 0
	for i, card := range cards {
		out.FiveLines[card.Symbol] = card.FiveLineCard()
		out.Traces[card.Symbol] = traces[i]
		out.InfoGaps[card.Symbol] = card.InfoGaps
		if traces[i].Mode == "ai" {
			aiCount++
		}
	}
	e.log.Info().
		Str("trade_date", tradeDate).
		Int("cards", len(cards)).
		Int("ai", aiCount).
		Msg("Decision synthesis complete")
	return out, nil
}

func (e *Engine) analyzeOne(ctx context.Context, cand sector.CalibratedCandidate, storyRec story.Record, news string, enableAI bool) (DecisionCard, Trace) {
	if enableAI && e.client != nil {
		card, err := e.aiCard(ctx, cand, storyRec, news)
		if err == nil {
			return card, Trace{Mode: "ai"}
		}
		e.log.Warn().Err(err).Str("symbol", cand.Symbol).Msg("AI card failed, using rule fallback")
		card = e.fallbackCard(cand, storyRec)
		return card, Trace{Mode: "fallback", Err: err.Error()}
	}
	return e.fallbackCard(cand, storyRec), Trace{Mode: "fallback"}
}

func (e *Engine) aiCard(ctx context.Context, cand sector.CalibratedCandidate, storyRec story.Record, news string) (DecisionCard, error) {
	var card DecisionCard
	text, err := e.client.Generate(ctx, textgen.Request{
		System: decisionSystemPrompt,
		Prompt: buildDecisionPrompt(cand, storyRec, news),
	})
	if err != nil {
		return card, err
	}
	if err := textgen.ExtractJSON(text, &card); err != nil {
		return card, err
	}
	card.Symbol = cand.Symbol
	card.Name = cand.Name
	card.Industry = cand.Industry
	e.repairChain(&card, cand)
	if err := validate.Struct(&card); err != nil {
		return card, fmt.Errorf("card validation: %w", err)
	}
	return card, nil
}

// repairChain enforces the evidence chain contract: at least one
// sector-context entry, and at least three entries overall.
func (e *Engine) repairChain(card *DecisionCard, cand sector.CalibratedCandidate) {
	hasSector := false
	for _, entry := range card.EvidenceChain {
		if strings.Contains(entry, "板块") || strings.Contains(entry, cand.Sector) {
			hasSector = true
			break
		}
	}
	if !hasSector {
		card.EvidenceChain = append(card.EvidenceChain, sectorEvidence(cand))
	}
	if len(card.EvidenceChain) < evidenceChainLen {
		card.EvidenceChain = fallbackChain(cand)
	}
}

// fallbackCard derives a deterministic card from price structure alone.
func (e *Engine) fallbackCard(cand sector.CalibratedCandidate, storyRec story.Record) DecisionCard {
	card := DecisionCard{
		Symbol:            cand.Symbol,
		Name:              cand.Name,
		Industry:          cand.Industry,
		ConclusionType:    ConclusionTrend,
		Stage:             ruleStage(cand),
		EvidenceChain:     fallbackChain(cand),
		Tradability:       "中性，按均线结构参与",
		Sustainability:    fmt.Sprintf("板块动量系数 %.2f，%s", cand.SectorMultiplier, cand.CalibrationReason),
		ExpectationGap:    "未识别明确预期差",
		StructurePosition: structureDesc(cand),
		MaxRisk:           "高位放量滞涨后的快速回撤",
		ReversalTrigger:   "跌破 MA10 或板块转弱",
	}
	if storyRec.Payload.HasRiskAlert {
		card.InfoGaps = append(card.InfoGaps, "新闻中含风险提示，需人工复核")
	}
	if storyRec.Err != "" {
		card.InfoGaps = append(card.InfoGaps, "叙事分析未完成："+storyRec.Err)
	}
	return card
}

// ruleStage classifies the stage from change and moving average structure.
func ruleStage(cand sector.CalibratedCandidate) string {
	switch {
	case cand.ChangePct >= 8 && cand.LastClose >= cand.MA5 && cand.MA5 >= cand.MA10:
		return StageAccel
	case cand.ChangePct > 0 && cand.LastClose >= cand.MA5:
		return StageLaunch
	case cand.LastClose < cand.MA10:
		return StagePullback
	default:
		return StageRelaunch
	}
}

func fallbackChain(cand sector.CalibratedCandidate) []string {
	return []string{
		fmt.Sprintf("当日涨幅 %.2f%%，量比 %.2f", cand.ChangePct, cand.VolRatio),
		fmt.Sprintf("均线结构：%s", cand.TrendLabel),
		sectorEvidence(cand),
	}
}

func sectorEvidence(cand sector.CalibratedCandidate) string {
	return fmt.Sprintf("所属板块 %s 日强度 %.2f%%，领涨 %s（%s）",
		cand.Sector, cand.SectorDayStrength, cand.SectorLeader, cand.SectorLeaderState)
}

func structureDesc(cand sector.CalibratedCandidate) string {
	switch {
	case cand.LastClose >= cand.MA5 && cand.MA5 >= cand.MA10 && cand.MA10 >= cand.MA20:
		return "多头排列上方"
	case cand.LastClose >= cand.MA20:
		return "MA20 上方整理区"
	default:
		return "均线下方弱势区"
	}
}

const decisionSystemPrompt = `你是一名A股短线决策分析师。只基于给定材料输出一张决策卡 JSON，禁止编造。
只输出 JSON，不要任何解释文字。`

// buildDecisionPrompt renders the raw stock payload (no derived scores),
// the story payload, the sector payload, and a bounded news excerpt.
func buildDecisionPrompt(cand sector.CalibratedCandidate, storyRec story.Record, news string) string {
	stock := map[string]any{
		"symbol":     cand.Symbol,
		"name":       cand.Name,
		"industry":   cand.Industry,
		"change_pct": cand.ChangePct,
		"close":      cand.LastClose,
		"ma5":        cand.MA5,
		"ma10":       cand.MA10,
		"ma20":       cand.MA20,
		"vol_ratio":  cand.VolRatio,
		"trend":      cand.TrendLabel,
	}
	stockJSON, _ := json.Marshal(stock)
	storyJSON, _ := json.Marshal(storyRec.Payload)
	sectorJSON, _ := json.Marshal(cand.Ctx())

	r := []rune(news)
	if len(r) > 1200 {
		news = string(r[:1200])
	}

	return fmt.Sprintf(`## 个股数据
%s

## 叙事画像
%s

## 板块环境
%s

## 新闻摘录
%s

## 任务
输出决策卡 JSON：
{
  "conclusion_type": "趋势|情绪|混合",
  "stage": "启动|加速|调整|二次启动",
  "evidence_chain": ["至少3条，必须包含一条板块环境证据"],
  "tradability": "...",
  "sustainability": "...",
  "expectation_gap": "...",
  "structure_position": "...",
  "max_risk": "...",
  "reversal_trigger": "...",
  "info_gaps": []
}`, stockJSON, storyJSON, sectorJSON, news)
}
