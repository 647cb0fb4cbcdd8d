package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-quant/petrel/internal/domain"
)

func TestIsMainBoard(t *testing.T) {
	tests := []struct {
		symbol string
		want   bool
	}{
		{"600519", true},
		{"601100", true},
		{"603000", true},
		{"605111", true},
		{"000858", true},
		{"002415", true},
		{"003816", true},
		{"688981", false}, // STAR
		{"300750", false}, // ChiNext
		{"830799", false}, // Beijing exchange
		{"430047", false},
		{"60051", false}, // wrong length
		{"60051a", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMainBoard(tt.symbol), tt.symbol)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, zerolog.Nop())
}

func TestUniverseFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/universe", r.URL.Path)
		assert.Equal(t, "2026-08-28", r.URL.Query().Get("trade_date"))
		w.Write([]byte(`{"trade_date":"2026-08-28","records":[
			{"symbol":"600519","name":"贵州茅台","industry":"白酒","pct_chg":9.8,"close":1700},
			{"symbol":"000100","name":"*ST京东","industry":"电子","pct_chg":8.1,"close":3.2},
			{"symbol":"300750","name":"宁德时代","industry":"电池","pct_chg":7.5,"close":190},
			{"symbol":"000858","name":"五粮液","industry":"白酒","pct_chg":2.0,"close":140}
		]}`))
	})

	records, err := c.Universe(context.Background(), "2026-08-28", UniverseOptions{
		MinChangePct:  5.0,
		MainBoardOnly: true,
		NonSTOnly:     true,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "600519", records[0].Symbol)
	assert.Equal(t, "2026-08-28", records[0].TradeDate)
	assert.False(t, records[0].IsST)
}

func TestUniverseMaxItemsCap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records":[
			{"symbol":"600001","name":"甲","pct_chg":9.0},
			{"symbol":"600002","name":"乙","pct_chg":8.0},
			{"symbol":"600003","name":"丙","pct_chg":7.0}
		]}`))
	})

	records, err := c.Universe(context.Background(), "2026-08-28", UniverseOptions{MaxItems: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "600001", records[0].Symbol)
	assert.Equal(t, "600002", records[1].Symbol)
}

func TestUniverseEmptyIsDataUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records":[]}`))
	})

	_, err := c.Universe(context.Background(), "2026-08-28", UniverseOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
}

func TestUniverseVendorError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records":[],"error":"tushare quota exhausted"}`))
	})

	_, err := c.Universe(context.Background(), "2026-08-28", UniverseOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestDailyHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history", r.URL.Path)
		assert.Equal(t, "600519", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"600519","bars":[
			{"date":"2026-08-27","close":1680,"volume":100},
			{"date":"2026-08-28","close":1700,"volume":120}
		]}`))
	})

	bars, err := c.DailyHistory(context.Background(), "600519", "2026-08-27", "2026-08-28")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1700.0, bars[1].Close)
}

func TestTextEndpointsDegradeOnEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"600519","text":""}`))
	})

	_, err := c.News(context.Background(), "600519", "2026-08-18", "2026-08-28")
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))

	_, err = c.Fundamentals(context.Background(), "600519", "2026-08-28")
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
}

func TestServerErrorIsCollaborator(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Concepts(context.Background(), "600519")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCollaborator))
}
