package universe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-quant/petrel/internal/clients/marketdata"
	"github.com/petrel-quant/petrel/internal/domain"
	"github.com/petrel-quant/petrel/pkg/logger"
)

type stubHistory struct {
	bars map[string][]marketdata.Bar
	err  error
}

func (s *stubHistory) DailyHistory(_ context.Context, symbol, _, _ string) ([]marketdata.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bars[symbol], nil
}

func risingBars(n int) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	for i := range bars {
		price := 10.0 + float64(i)*0.2
		bars[i] = marketdata.Bar{
			Date:      fmt.Sprintf("2026-07-%02d", i+1),
			Close:     price,
			Volume:    1000 + float64(i)*100,
			ChangePct: 2.0,
		}
	}
	return bars
}

func TestComputeFeaturesRisingSeries(t *testing.T) {
	fs := ComputeFeatures(risingBars(30))

	assert.Equal(t, "uptrend", fs.TrendLabel)
	assert.Greater(t, fs.LastClose, fs.MA5)
	assert.Greater(t, fs.MA5, fs.MA10)
	assert.Greater(t, fs.MA10, fs.MA20)
	assert.Greater(t, fs.VolRatio, 1.0)
	// closes at the rolling high
	assert.Equal(t, 100.0, fs.BreakoutScore)
	assert.Equal(t, 100.0, fs.PositionScore)
	assert.Equal(t, 100.0, fs.TrendScore)
	assert.InDelta(t, 6.0, fs.Recent3DChange, 0.001)
}

func TestComputeFeaturesEmptyHistory(t *testing.T) {
	fs := ComputeFeatures(nil)
	assert.Equal(t, "unknown", fs.TrendLabel)
	assert.Equal(t, 0.0, fs.LastClose)
	assert.Equal(t, 0.0, fs.TrendScore)
}

func TestComputeFeaturesShortHistory(t *testing.T) {
	fs := ComputeFeatures(risingBars(3))
	assert.Greater(t, fs.LastClose, 0.0)
	// MAs fall back to shorter windows without panicking
	assert.Greater(t, fs.MA20, 0.0)
}

func TestAttachDegradesOnMissingHistory(t *testing.T) {
	hist := &stubHistory{err: errors.New("upstream down")}
	f := NewFeatureAttacher(hist, 2, logger.Nop())

	records, err := f.Attach(context.Background(), []domain.UniverseRecord{
		{Symbol: "600001", ChangePct: 9.8},
	}, "2026-08-28")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "unknown", records[0].TrendLabel)
	assert.Equal(t, 9.8, records[0].ChangePct)
}

func TestAttachPreservesOrder(t *testing.T) {
	hist := &stubHistory{bars: map[string][]marketdata.Bar{
		"600001": risingBars(30),
		"600002": risingBars(10),
		"600003": risingBars(30),
	}}
	f := NewFeatureAttacher(hist, 3, logger.Nop())

	in := []domain.UniverseRecord{{Symbol: "600001"}, {Symbol: "600002"}, {Symbol: "600003"}}
	records, err := f.Attach(context.Background(), in, "2026-08-28")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, in[i].Symbol, r.Symbol)
	}
}

func TestAttachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hist := &stubHistory{err: context.Canceled}
	f := NewFeatureAttacher(hist, 1, logger.Nop())

	_, err := f.Attach(ctx, []domain.UniverseRecord{{Symbol: "600001"}}, "2026-08-28")
	assert.Error(t, err)
}
