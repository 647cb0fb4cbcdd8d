package decision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-quant/petrel/internal/clients/textgen"
	"github.com/petrel-quant/petrel/internal/domain"
	"github.com/petrel-quant/petrel/internal/modules/sector"
	"github.com/petrel-quant/petrel/internal/modules/story"
	"github.com/petrel-quant/petrel/pkg/logger"
)

func calCand(symbol, name string, changePct, close, ma5, ma10, ma20 float64) sector.CalibratedCandidate {
	return sector.CalibratedCandidate{
		Candidate: domain.Candidate{
			Record: domain.Record{
				UniverseRecord: domain.UniverseRecord{
					Symbol: symbol, Name: name, Industry: "机器人零部件", ChangePct: changePct,
				},
				FeatureSet: domain.FeatureSet{
					LastClose: close, MA5: ma5, MA10: ma10, MA20: ma20,
					VolRatio: 1.5, TrendLabel: "strong_up",
				},
			},
		},
		Sector:            "机器人零部件",
		SectorDayStrength: 6.8,
		SectorLeader:      symbol,
		SectorLeaderState: sector.LeaderStrong,
		SectorMultiplier:  1.1,
		CalibrationReason: "板块走强，上调评估",
	}
}

func TestFallbackCardComplete(t *testing.T) {
	e := NewEngine(nil, 2, logger.Nop())
	cands := []sector.CalibratedCandidate{calCand("600001", "甲", 9.8, 21.0, 19.5, 18.2, 17.0)}

	out, err := e.Analyze(context.Background(), "2026-08-28", cands, nil, nil, false)
	require.NoError(t, err)
	require.Len(t, out.Cards, 1)

	card := out.Cards[0]
	assert.Equal(t, "fallback", out.Traces["600001"].Mode)
	assert.Equal(t, ConclusionTrend, card.ConclusionType)
	assert.Equal(t, StageAccel, card.Stage)
	require.Len(t, card.EvidenceChain, 3)
	assert.NotEmpty(t, card.Tradability)
	assert.NotEmpty(t, card.Sustainability)
	assert.NotEmpty(t, card.ExpectationGap)
	assert.NotEmpty(t, card.StructurePosition)
	assert.NotEmpty(t, card.MaxRisk)
	assert.NotEmpty(t, card.ReversalTrigger)
	require.NoError(t, validate.Struct(&card))
}

func TestRuleStage(t *testing.T) {
	tests := []struct {
		name                       string
		chg, close, ma5, ma10, ma20 float64
		want                       string
	}{
		{"big gain above aligned MAs", 9.0, 21.0, 19.5, 18.2, 17.0, StageAccel},
		{"modest gain above MA5", 3.0, 20.0, 19.5, 19.8, 19.0, StageLaunch},
		{"below MA10", 1.0, 18.0, 19.5, 19.0, 18.5, StagePullback},
		{"between MA5 and MA10", 0.0, 19.2, 19.5, 19.0, 18.5, StageRelaunch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := calCand("600001", "甲", tt.chg, tt.close, tt.ma5, tt.ma10, tt.ma20)
			assert.Equal(t, tt.want, ruleStage(cand))
		})
	}
}

func TestFiveLineCard(t *testing.T) {
	card := DecisionCard{
		Symbol: "600001", Name: "甲", ConclusionType: ConclusionTrend, Stage: StageAccel,
		EvidenceChain:     []string{"a", "b", "c"},
		Tradability:       "t", Sustainability: "s", ExpectationGap: "e",
		StructurePosition: "p", MaxRisk: "r", ReversalTrigger: "v",
	}
	lines := strings.Split(card.FiveLineCard(), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "1 结论："))
	assert.True(t, strings.HasPrefix(lines[2], "3 证据链："))
	assert.Contains(t, lines[2], "a；b；c")
}

type stubClient struct {
	reply string
	err   error
}

func (s *stubClient) Generate(context.Context, textgen.Request) (string, error) {
	return s.reply, s.err
}
func (s *stubClient) Model() string { return "stub" }

const aiReply = `{
  "conclusion_type": "混合",
  "stage": "启动",
  "evidence_chain": ["订单公告落地", "放量突破前高", "机器人零部件板块日强度领先"],
  "tradability": "可沿 MA5 参与",
  "sustainability": "催化密集",
  "expectation_gap": "交付节奏快于一致预期",
  "structure_position": "突破平台上沿",
  "max_risk": "订单不及预期",
  "reversal_trigger": "跌破平台"
}`

func TestAICardParsed(t *testing.T) {
	e := NewEngine(&stubClient{reply: aiReply}, 1, logger.Nop())
	cands := []sector.CalibratedCandidate{calCand("600001", "甲", 5.0, 20.0, 19.5, 19.0, 18.0)}

	out, err := e.Analyze(context.Background(), "2026-08-28", cands, nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "ai", out.Traces["600001"].Mode)
	card := out.Cards[0]
	assert.Equal(t, ConclusionMixed, card.ConclusionType)
	assert.Equal(t, "600001", card.Symbol)
	assert.Equal(t, "甲", card.Name)
}

func TestAICardAppendsSectorEvidence(t *testing.T) {
	reply := strings.Replace(aiReply, "机器人零部件板块日强度领先", "第三条普通证据", 1)
	e := NewEngine(&stubClient{reply: reply}, 1, logger.Nop())
	cands := []sector.CalibratedCandidate{calCand("600001", "甲", 5.0, 20.0, 19.5, 19.0, 18.0)}

	out, err := e.Analyze(context.Background(), "2026-08-28", cands, nil, nil, true)
	require.NoError(t, err)
	card := out.Cards[0]

	found := false
	for _, entry := range card.EvidenceChain {
		if strings.Contains(entry, "板块") {
			found = true
		}
	}
	assert.True(t, found, "chain must contain a sector-context entry")
}

func TestAIFailureFallsBack(t *testing.T) {
	e := NewEngine(&stubClient{err: errors.New("timeout")}, 1, logger.Nop())
	cands := []sector.CalibratedCandidate{calCand("600001", "甲", 9.8, 21.0, 19.5, 18.2, 17.0)}

	out, err := e.Analyze(context.Background(), "2026-08-28", cands, nil, nil, true)
	require.NoError(t, err)
	tr := out.Traces["600001"]
	assert.Equal(t, "fallback", tr.Mode)
	assert.Contains(t, tr.Err, "timeout")
	assert.Equal(t, StageAccel, out.Cards[0].Stage)
}

func TestStoryRiskSurfacesInInfoGaps(t *testing.T) {
	e := NewEngine(nil, 1, logger.Nop())
	cands := []sector.CalibratedCandidate{calCand("600001", "甲", 9.8, 21.0, 19.5, 18.2, 17.0)}
	stories := &story.Result{BySymbol: map[string]story.Record{
		"600001": {Symbol: "600001", Payload: story.Payload{HasRiskAlert: true}},
	}}

	out, err := e.Analyze(context.Background(), "2026-08-28", cands, stories, nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, out.Cards[0].InfoGaps)
	assert.Contains(t, out.Cards[0].InfoGaps[0], "风险提示")
	// the artifact carries the same gaps aggregated per symbol
	assert.Equal(t, out.Cards[0].InfoGaps, out.InfoGaps["600001"])
}
