package story

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Keyword categories the simple analyzer scores against.
var keywords = []string{"涨停", "龙虎榜", "题材", "政策", "预告", "风险提示", "主线", "龙头", "机构"}

const (
	headlineWeight = 8
	keywordWeight  = 5
	maxHitsPerWord = 5
	heatHighMin    = 80
	heatMediumMin  = 40
)

// SimpleAnalyzer scores news text by keyword density. No collaborator
// calls; cheap enough to run over the whole candidate set.
type SimpleAnalyzer struct {
	log zerolog.Logger
}

func NewSimpleAnalyzer(log zerolog.Logger) *SimpleAnalyzer {
	return &SimpleAnalyzer{log: log.With().Str("component", "story_simple").Logger()}
}

func (a *SimpleAnalyzer) Mode() Mode { return ModeSimple }

func (a *SimpleAnalyzer) Analyze(ctx context.Context, tradeDate string, inputs []Input) (*Result, error) {
	res := &Result{
		TradeDate: tradeDate,
		Mode:      ModeSimple,
		BySymbol:  make(map[string]Record, len(inputs)),
	}
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.BySymbol[in.Symbol] = Record{
			Symbol:  in.Symbol,
			Name:    in.Name,
			State:   "done",
			Payload: scoreNews(in.News),
		}
	}
	res.Count = len(res.BySymbol)
	a.log.Info().Str("trade_date", tradeDate).Int("count", res.Count).Msg("Simple story analysis complete")
	return res, nil
}

// scoreNews derives the payload from raw news text. Headlines are "### "
// headed blocks; each keyword contributes capped occurrence counts.
func scoreNews(news string) Payload {
	hits := make(map[string]int)
	hotness := strings.Count(news, "### ") * headlineWeight
	for _, kw := range keywords {
		n := strings.Count(news, kw)
		if n == 0 {
			continue
		}
		hits[kw] = n
		if n > maxHitsPerWord {
			n = maxHitsPerWord
		}
		hotness += n * keywordWeight
	}

	heat := HeatLow
	switch {
	case hotness >= heatHighMin:
		heat = HeatHigh
	case hotness >= heatMediumMin:
		heat = HeatMedium
	}

	return Payload{
		NewsCount:           strings.Count(news, "### "),
		HeatLevel:           heat,
		IsMainlineCandidate: hits["主线"] > 0 || hits["龙头"] > 0,
		HasRiskAlert:        hits["风险提示"] > 0,
		RawLength:           len([]rune(news)),
		KeywordHits:         hits,
	}
}
