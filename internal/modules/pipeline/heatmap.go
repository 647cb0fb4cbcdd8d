package pipeline

import (
	"sort"
	"strings"

	"github.com/petrel-quant/petrel/internal/modules/decision"
	"github.com/petrel-quant/petrel/internal/modules/sector"
)

const topSectorCount = 5

// SectorHeat is one row of the theme heatmap.
type SectorHeat struct {
	Sector    string  `json:"sector"`
	Count     int     `json:"count"`
	AvgChange float64 `json:"avg_change_pct"`
}

// Heatmap is the S-stage artifact: where the day's candidates cluster and
// what the decision cards talk about.
type Heatmap struct {
	TradeDate  string         `json:"trade_date"`
	TopSectors []SectorHeat   `json:"top_sectors"`
	TagCounts  map[string]int `json:"tag_counts"`
}

// Card-text tags counted into the heatmap.
var heatmapTags = map[string][]string{
	"risk":     {"风险", "回撤", "跌破"},
	"theme":    {"题材", "概念", "主线"},
	"breakout": {"突破", "新高", "放量"},
}

// BuildHeatmap aggregates sector clustering over the calibrated candidates
// and tag hits over the decision card text.
func BuildHeatmap(tradeDate string, cands []sector.CalibratedCandidate, cards []decision.DecisionCard) *Heatmap {
	type agg struct {
		count int
		sum   float64
	}
	bySector := make(map[string]*agg)
	for _, c := range cands {
		a := bySector[c.Sector]
		if a == nil {
			a = &agg{}
			bySector[c.Sector] = a
		}
		a.count++
		a.sum += c.ChangePct
	}

	rows := make([]SectorHeat, 0, len(bySector))
	for s, a := range bySector {
		rows = append(rows, SectorHeat{
			Sector:    s,
			Count:     a.count,
			AvgChange: a.sum / float64(a.count),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		if rows[i].AvgChange != rows[j].AvgChange {
			return rows[i].AvgChange > rows[j].AvgChange
		}
		return rows[i].Sector < rows[j].Sector
	})
	if len(rows) > topSectorCount {
		rows = rows[:topSectorCount]
	}

	tags := map[string]int{"risk": 0, "theme": 0, "breakout": 0}
	for _, card := range cards {
		text := cardText(card)
		for tag, words := range heatmapTags {
			for _, w := range words {
				if strings.Contains(text, w) {
					tags[tag]++
					break
				}
			}
		}
	}

	return &Heatmap{TradeDate: tradeDate, TopSectors: rows, TagCounts: tags}
}

func cardText(card decision.DecisionCard) string {
	parts := append([]string{
		card.ConclusionType, card.Stage, card.Tradability, card.Sustainability,
		card.ExpectationGap, card.StructurePosition, card.MaxRisk, card.ReversalTrigger,
	}, card.EvidenceChain...)
	return strings.Join(parts, " ")
}
