package domain

// UniverseRecord is one equity on one trade date, immutable once fetched.
// Keyed by (symbol, trade date).
type UniverseRecord struct {
	Symbol    string  `json:"symbol"`
	TSCode    string  `json:"ts_code"`
	Name      string  `json:"name"`
	Market    string  `json:"market"`
	Industry  string  `json:"industry"`
	IsST      bool    `json:"is_st"`
	ChangePct float64 `json:"change_pct"`
	Close     float64 `json:"close"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
	Amount    float64 `json:"amount"`
	TradeDate string  `json:"trade_date"`
}

// FeatureSet holds derived technical attributes for a record.
// Computed once by the feature attacher, never mutated afterward.
type FeatureSet struct {
	TrendLabel     string  `json:"trend_label"`
	Recent3DChange float64 `json:"recent_3d_change"`
	LastClose      float64 `json:"last_close"`
	MA5            float64 `json:"ma5"`
	MA10           float64 `json:"ma10"`
	MA20           float64 `json:"ma20"`
	VolRatio       float64 `json:"vol_ratio"`
	PositionScore  float64 `json:"position_score"`
	TrendScore     float64 `json:"trend_score"`
	VolumeScore    float64 `json:"volume_score"`
	BreakoutScore  float64 `json:"breakout_score"`
	StyleScore     float64 `json:"style_score"`
}

// Record is a universe record with its feature set attached.
type Record struct {
	UniverseRecord
	FeatureSet
	Concepts []string `json:"concept_list,omitempty"`
}

// Candidate is a record that survived the coarse screen.
type Candidate struct {
	Record
	ReasonTags     []string `json:"coarse_reason_tags"`
	CompositeScore float64  `json:"composite_score"`
}

// DroppedRecord is a record rejected by the coarse screen with the
// first hard-filter reason that failed.
type DroppedRecord struct {
	Record
	DropReasons []string `json:"drop_reasons"`
}

// Evidence is an identified news snippet referenced by id (E1, E2, ...)
// from narrative, timeline and story-card claims.
type Evidence struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}
