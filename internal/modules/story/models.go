package story

import (
	"context"

	"github.com/petrel-quant/petrel/internal/domain"
)

// Mode selects the narrative analysis strategy.
type Mode string

const (
	ModeSimple   Mode = "simple"
	ModeTwoLayer Mode = "two_layer"
)

// Evidence hardness grades.
const (
	GradeStrong = "Strong"
	GradeMedium = "Medium"
	GradeWeak   = "Weak"
)

// Heat levels exposed through the payload.
const (
	HeatHigh   = "high"
	HeatMedium = "medium"
	HeatLow    = "low"
)

// Stage names, also used as file-name prefixes for the prompt IO capture.
const (
	StageNarrative = "1_narrative"
	StageTimeline  = "2_timeline"
	StageSynthesis = "3_synthesizer"
)

// Input is everything the analyzer knows about one symbol. Text fields may
// be empty when the upstream fetch degraded.
type Input struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Industry     string   `json:"industry"`
	ChangePct    float64  `json:"change_pct"`
	News         string   `json:"news"`
	Fundamentals string   `json:"fundamentals"`
	Business     string   `json:"business"`
	Concepts     []string `json:"concepts"`
}

// Payload is the mode-agnostic summary every record carries. Downstream
// stages consume only this, never the mode-specific internals.
type Payload struct {
	NewsCount           int            `json:"news_count"`
	HeatLevel           string         `json:"heat_level"`
	IsMainlineCandidate bool           `json:"is_mainline_candidate"`
	HasRiskAlert        bool           `json:"has_risk_alert"`
	RawLength           int            `json:"raw_length"`
	OneLiner            string         `json:"one_liner,omitempty"`
	KeywordHits         map[string]int `json:"keyword_hits,omitempty"`
}

// StageIO captures one collaborator exchange for auditing.
type StageIO struct {
	Stage  string `json:"stage"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Record is the per-symbol analysis outcome.
type Record struct {
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name"`
	State     string           `json:"state"` // done | failed
	Err       string           `json:"error,omitempty"`
	Payload   Payload          `json:"payload"`
	Narrative *NarrativeOutput `json:"narrative,omitempty"`
	Timeline  *TimelineOutput  `json:"timeline,omitempty"`
	Card      *StoryCard       `json:"story_card,omitempty"`
	PromptIO  []StageIO        `json:"-"`
}

// Result is the batch output keyed by symbol.
type Result struct {
	TradeDate string            `json:"trade_date"`
	Mode      Mode              `json:"mode"`
	Count     int               `json:"count"`
	BySymbol  map[string]Record `json:"by_symbol"`
}

// Analyzer runs narrative analysis over a batch of symbols.
type Analyzer interface {
	Analyze(ctx context.Context, tradeDate string, inputs []Input) (*Result, error)
	Mode() Mode
}

// NarrativeOutput is the first-stage structure.
type NarrativeOutput struct {
	CompanyProfile    string         `json:"company_profile" validate:"required"`
	MarketNarratives  []domain.Claim `json:"market_narratives" validate:"required,min=1,dive"`
	CompanyDirections []domain.Claim `json:"company_directions" validate:"dive"`
	EvidenceGrade     string         `json:"evidence_grade" validate:"required,oneof=Strong Medium Weak"`
	GradeReason       string         `json:"grade_reason" validate:"required"`
	DataGaps          []string       `json:"data_gaps"`
	MainNarrativeA    string         `json:"main_narrative_a,omitempty"`
	MainNarrativeB    string         `json:"main_narrative_b,omitempty"`
}

// CatalystEvent is one dated catalytic claim in the timeline.
type CatalystEvent struct {
	domain.Claim
	Window string `json:"window" validate:"required"`
}

// TimelineOutput is the second-stage structure. When nothing verifiable
// exists, Events is empty and UnverifiableNote explains why.
type TimelineOutput struct {
	Events           []CatalystEvent `json:"events" validate:"dive"`
	NearTermGrade    string          `json:"near_term_grade" validate:"required,oneof=Strong Medium Weak"`
	MidTermGrade     string          `json:"mid_term_grade" validate:"required,oneof=Strong Medium Weak"`
	DataGaps         []string        `json:"data_gaps"`
	UnverifiableNote string          `json:"unverifiable_note,omitempty"`
}

// StorySection groups the repeated narrative and what it implies.
type StorySection struct {
	NarrativeClaims []domain.Claim `json:"narrative_claims" validate:"dive"`
	DirectionClaims []domain.Claim `json:"direction_claims" validate:"dive"`
	SoWhat          string         `json:"so_what"`
}

// GradedPoint is a highlight or drawback with its own severity grade.
type GradedPoint struct {
	Text  string `json:"text" validate:"required"`
	Grade string `json:"grade" validate:"required,oneof=Strong Medium Weak"`
}

// EvidenceAssessment summarizes how hard the evidence base is.
type EvidenceAssessment struct {
	Grade        string   `json:"grade" validate:"required,oneof=Strong Medium Weak"`
	HardEvidence []string `json:"hard_evidence"`
	WeakPoints   []string `json:"weak_points"`
}

// TimelineSummary condenses the catalyst view.
type TimelineSummary struct {
	NearTerm string `json:"near_term"`
	MidTerm  string `json:"mid_term"`
}

// DowngradeRule is a tripwire: when the signal fires, take the action.
type DowngradeRule struct {
	Signal  string `json:"signal" validate:"required"`
	Action  string `json:"action" validate:"required"`
	Trigger string `json:"trigger"`
}

// CardNotes carries residual caveats.
type CardNotes struct {
	DataGaps   []string `json:"data_gaps"`
	Strictness string   `json:"strictness,omitempty"`
}

// StoryCard is the final synthesis structure.
type StoryCard struct {
	MarketImpression string             `json:"market_impression" validate:"required"`

	// OneLiner may be empty; an empty one marks the card as not a
	// mainline candidate.
	OneLiner string `json:"one_liner"`
	CompanyBasics    string             `json:"company_basics"`
	Story            StorySection       `json:"story"`
	Highlights       []GradedPoint      `json:"highlights" validate:"dive"`
	Drawbacks        []GradedPoint      `json:"drawbacks" validate:"dive"`
	Evidence         EvidenceAssessment `json:"evidence_assessment"`
	Timeline         TimelineSummary    `json:"timeline_summary"`
	WhyMoneyComes    []string           `json:"why_money_comes"`
	DowngradeRules   []DowngradeRule    `json:"downgrade_rules" validate:"dive"`
	EvidenceList     []domain.Evidence  `json:"evidence_list"`
	Notes            CardNotes          `json:"notes"`
	MainStoryA       string             `json:"main_story_a,omitempty"`
	MainStoryB       string             `json:"main_story_b,omitempty"`
}
