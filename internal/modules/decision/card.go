package decision

import (
	"fmt"
	"strings"
)

// Conclusion types.
const (
	ConclusionTrend     = "趋势"
	ConclusionSentiment = "情绪"
	ConclusionMixed     = "混合"
)

// Market stages.
const (
	StageLaunch   = "启动"
	StageAccel    = "加速"
	StagePullback = "调整"
	StageRelaunch = "二次启动"
)

// DecisionCard is the final per-symbol judgment. Cards are never mutated
// after creation; a later run supersedes the whole artifact.
type DecisionCard struct {
	Symbol            string   `json:"symbol" validate:"required"`
	Name              string   `json:"name" validate:"required"`
	Industry          string   `json:"industry"`
	ConclusionType    string   `json:"conclusion_type" validate:"required,oneof=趋势 情绪 混合"`
	Stage             string   `json:"stage" validate:"required,oneof=启动 加速 调整 二次启动"`
	EvidenceChain     []string `json:"evidence_chain" validate:"required,min=1"`
	Tradability       string   `json:"tradability" validate:"required"`
	Sustainability    string   `json:"sustainability" validate:"required"`
	ExpectationGap    string   `json:"expectation_gap" validate:"required"`
	StructurePosition string   `json:"structure_position" validate:"required"`
	MaxRisk           string   `json:"max_risk" validate:"required"`
	ReversalTrigger   string   `json:"reversal_trigger" validate:"required"`
	InfoGaps          []string `json:"info_gaps,omitempty"`
}

// FiveLineCard renders the card into its five-line display form.
func (c DecisionCard) FiveLineCard() string {
	var b strings.Builder
	fmt.Fprintf(&b, "1 结论：%s（%s %s）\n", c.ConclusionType, c.Name, c.Symbol)
	fmt.Fprintf(&b, "2 阶段：%s\n", c.Stage)
	fmt.Fprintf(&b, "3 证据链：%s\n", strings.Join(c.EvidenceChain, "；"))
	fmt.Fprintf(&b, "4 可交易性：%s｜可持续性：%s｜预期差：%s\n", c.Tradability, c.Sustainability, c.ExpectationGap)
	fmt.Fprintf(&b, "5 结构位：%s｜最大风险：%s｜反转条件：%s", c.StructurePosition, c.MaxRisk, c.ReversalTrigger)
	return b.String()
}
