package marketdata

// Bar is one daily OHLCV row from the quote service.
type Bar struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	ChangePct float64 `json:"change_pct"`
}

// UniverseOptions filters the daily universe at the provider boundary.
type UniverseOptions struct {
	MinChangePct  float64
	MainBoardOnly bool
	NonSTOnly     bool
	MaxItems      int
}

// universeResponse is the quote-service payload for the daily universe.
type universeResponse struct {
	TradeDate string         `json:"trade_date"`
	Records   []quoteRecord  `json:"records"`
	Error     string         `json:"error,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

type quoteRecord struct {
	Symbol    string  `json:"symbol"`
	TSCode    string  `json:"ts_code"`
	Name      string  `json:"name"`
	Market    string  `json:"market"`
	Industry  string  `json:"industry"`
	ChangePct float64 `json:"pct_chg"`
	Close     float64 `json:"close"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"vol"`
	Amount    float64 `json:"amount"`
}

type historyResponse struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
	Error  string `json:"error,omitempty"`
}

type textResponse struct {
	Symbol string `json:"symbol"`
	Text   string `json:"text"`
	Error  string `json:"error,omitempty"`
}

type conceptsResponse struct {
	Symbol   string   `json:"symbol"`
	Concepts []string `json:"concepts"`
	Error    string   `json:"error,omitempty"`
}
