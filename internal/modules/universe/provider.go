package universe

import (
	"context"

	"github.com/petrel-quant/petrel/internal/clients/marketdata"
	"github.com/petrel-quant/petrel/internal/domain"
)

// Provider supplies the day's raw equity universe. Implemented by the
// marketdata client; external failures surface as domain.ErrDataUnavailable.
type Provider interface {
	Universe(ctx context.Context, tradeDate string, opts marketdata.UniverseOptions) ([]domain.UniverseRecord, error)
}

// HistorySource supplies daily OHLCV history for feature computation.
type HistorySource interface {
	DailyHistory(ctx context.Context, symbol, start, end string) ([]marketdata.Bar, error)
}
