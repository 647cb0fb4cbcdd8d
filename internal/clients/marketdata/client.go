package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/domain"
)

// Client talks to the quote microservice that fronts the A-share data
// vendors (daily quotes, stock basics, news, fundamentals, concept boards).
// Empty vendor responses surface as domain.ErrDataUnavailable so callers can
// degrade per symbol instead of aborting a batch.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new quote-service client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "marketdata").Logger(),
	}
}

// IsMainBoard reports whether a six-digit symbol belongs to the Shanghai or
// Shenzhen main board. STAR (688), ChiNext (300) and Beijing exchange (8/4
// prefixes) are excluded.
func IsMainBoard(symbol string) bool {
	if len(symbol) != 6 {
		return false
	}
	for _, r := range symbol {
		if r < '0' || r > '9' {
			return false
		}
	}
	if strings.HasPrefix(symbol, "688") || strings.HasPrefix(symbol, "300") ||
		strings.HasPrefix(symbol, "8") || strings.HasPrefix(symbol, "4") {
		return false
	}
	for _, p := range []string{"000", "001", "002", "003", "600", "601", "603", "605"} {
		if strings.HasPrefix(symbol, p) {
			return true
		}
	}
	return false
}

// Universe returns the day's raw equity universe sorted by change percent
// descending, filtered by the MVP constraints (main board, non-ST, change
// threshold) and capped at MaxItems.
func (c *Client) Universe(ctx context.Context, tradeDate string, opts UniverseOptions) ([]domain.UniverseRecord, error) {
	var resp universeResponse
	params := url.Values{}
	params.Set("trade_date", tradeDate)
	if err := c.get(ctx, "/api/universe", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: universe for %s: %s", domain.ErrDataUnavailable, tradeDate, resp.Error)
	}
	if len(resp.Records) == 0 {
		return nil, fmt.Errorf("%w: empty universe for %s", domain.ErrDataUnavailable, tradeDate)
	}

	records := make([]domain.UniverseRecord, 0, len(resp.Records))
	for _, row := range resp.Records {
		if row.ChangePct <= opts.MinChangePct {
			continue
		}
		if opts.MainBoardOnly && !IsMainBoard(row.Symbol) {
			continue
		}
		isST := strings.Contains(strings.ToUpper(row.Name), "ST")
		if opts.NonSTOnly && isST {
			continue
		}
		records = append(records, domain.UniverseRecord{
			Symbol:    row.Symbol,
			TSCode:    row.TSCode,
			Name:      row.Name,
			Market:    row.Market,
			Industry:  row.Industry,
			IsST:      isST,
			ChangePct: row.ChangePct,
			Close:     row.Close,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Volume:    row.Volume,
			Amount:    row.Amount,
			TradeDate: tradeDate,
		})
	}

	// Quote service returns rows sorted by pct_chg descending already, but
	// upstream vendors disagree on tie order, so enforce the cap only.
	if opts.MaxItems > 0 && len(records) > opts.MaxItems {
		records = records[:opts.MaxItems]
	}

	c.log.Info().
		Str("trade_date", tradeDate).
		Int("count", len(records)).
		Float64("min_change_pct", opts.MinChangePct).
		Msg("Universe loaded")

	return records, nil
}

// DailyHistory returns daily bars for [start, end], oldest first.
func (c *Client) DailyHistory(ctx context.Context, symbol, start, end string) ([]Bar, error) {
	var resp historyResponse
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("start", start)
	params.Set("end", end)
	if err := c.get(ctx, "/api/history", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" || len(resp.Bars) == 0 {
		return nil, fmt.Errorf("%w: history for %s [%s..%s]", domain.ErrDataUnavailable, symbol, start, end)
	}
	return resp.Bars, nil
}

// Fundamentals returns the markdown fundamentals text for a symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol, tradeDate string) (string, error) {
	var resp textResponse
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("trade_date", tradeDate)
	if err := c.get(ctx, "/api/fundamentals", params, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" || resp.Text == "" {
		return "", fmt.Errorf("%w: fundamentals for %s", domain.ErrDataUnavailable, symbol)
	}
	return resp.Text, nil
}

// News returns dated news text for a symbol in [start, end].
func (c *Client) News(ctx context.Context, symbol, start, end string) (string, error) {
	var resp textResponse
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("start", start)
	params.Set("end", end)
	if err := c.get(ctx, "/api/news", params, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" || resp.Text == "" {
		return "", fmt.Errorf("%w: news for %s [%s..%s]", domain.ErrDataUnavailable, symbol, start, end)
	}
	return resp.Text, nil
}

// Concepts returns the concept/theme board names a symbol belongs to.
func (c *Client) Concepts(ctx context.Context, symbol string) ([]string, error) {
	var resp conceptsResponse
	params := url.Values{}
	params.Set("symbol", symbol)
	if err := c.get(ctx, "/api/concepts", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: concepts for %s", domain.ErrDataUnavailable, symbol)
	}
	return resp.Concepts, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrCollaborator, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", domain.ErrCollaborator, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", domain.ErrCollaborator, path, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", domain.ErrCollaborator, path, err)
	}
	return nil
}
