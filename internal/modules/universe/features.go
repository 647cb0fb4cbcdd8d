package universe

import (
	"context"
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/petrel-quant/petrel/internal/clients/marketdata"
	"github.com/petrel-quant/petrel/internal/domain"
)

const featureWindow = 30

// FeatureAttacher computes the structural feature set per universe record
// from a 30-day OHLCV history. Features are computed once and never mutated;
// a record with no usable history gets zeroed scores and trend "unknown"
// rather than failing the batch.
type FeatureAttacher struct {
	history HistorySource
	workers int
	log     zerolog.Logger
}

// NewFeatureAttacher creates a feature attacher backed by a history source
func NewFeatureAttacher(history HistorySource, workers int, log zerolog.Logger) *FeatureAttacher {
	if workers <= 0 {
		workers = 4
	}
	return &FeatureAttacher{
		history: history,
		workers: workers,
		log:     log.With().Str("component", "feature_attacher").Logger(),
	}
}

// Attach fetches per-symbol history on a bounded worker pool and merges the
// computed features into each record. Input order is preserved.
func (f *FeatureAttacher) Attach(ctx context.Context, records []domain.UniverseRecord, tradeDate string) ([]domain.Record, error) {
	start, err := historyStart(tradeDate, featureWindow)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Record, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, rec := range records {
		g.Go(func() error {
			bars, err := f.history.DailyHistory(gctx, rec.Symbol, start, tradeDate)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f.log.Warn().Err(err).Str("symbol", rec.Symbol).Msg("History unavailable, zeroing features")
				bars = nil
			}
			out[i] = domain.Record{UniverseRecord: rec, FeatureSet: ComputeFeatures(bars)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.log.Info().
		Str("trade_date", tradeDate).
		Int("count", len(out)).
		Msg("Features attached")

	return out, nil
}

// ComputeFeatures derives the structural feature set from daily bars,
// oldest first. At most the trailing 30 bars are considered.
func ComputeFeatures(bars []marketdata.Bar) domain.FeatureSet {
	if len(bars) == 0 {
		return domain.FeatureSet{TrendLabel: "unknown"}
	}
	if len(bars) > featureWindow {
		bars = bars[len(bars)-featureWindow:]
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	changes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
		changes[i] = b.ChangePct
	}

	lastClose := closes[len(closes)-1]
	rollingHigh := closes[0]
	rollingLow := closes[0]
	for _, c := range closes {
		rollingHigh = math.Max(rollingHigh, c)
		rollingLow = math.Min(rollingLow, c)
	}

	ma5 := smaLast(closes, 5, lastClose)
	ma10 := smaLast(closes, 10, ma5)
	ma20 := smaLast(closes, 20, ma10)

	recentVol := stat.Mean(tail(volumes, 5), nil)
	volRatio := 1.0
	if base := len(volumes) - 5; base >= 1 {
		baseVol := stat.Mean(volumes[:base], nil)
		if baseVol > 0 {
			volRatio = recentVol / baseVol
		}
	}

	recent3d := 0.0
	for _, c := range tail(changes, 3) {
		recent3d += c
	}

	position := 0.0
	if rollingHigh > rollingLow {
		position = (lastClose - rollingLow) / (rollingHigh - rollingLow)
	}

	trendScore := 35.0
	if lastClose > ma5 && ma5 >= ma10 && ma10 >= ma20 {
		trendScore = 100.0
	} else if lastClose > ma10 {
		trendScore = 60.0
	}

	breakoutScore := 40.0
	if lastClose >= rollingHigh*0.995 {
		breakoutScore = 100.0
	}

	trendLabel := "sideways"
	if lastClose >= ma10 {
		trendLabel = "uptrend"
	}

	return domain.FeatureSet{
		TrendLabel:     trendLabel,
		Recent3DChange: round2(recent3d),
		LastClose:      round3(lastClose),
		MA5:            round3(ma5),
		MA10:           round3(ma10),
		MA20:           round3(ma20),
		VolRatio:       round3(volRatio),
		PositionScore:  round2(clamp(position*100, 0, 100)),
		TrendScore:     round2(trendScore),
		VolumeScore:    round2(clamp((volRatio-0.8)*50, 0, 100)),
		BreakoutScore:  round2(breakoutScore),
		StyleScore:     round2(clamp(math.Abs(recent3d)*5, 0, 100)),
	}
}

// smaLast returns the trailing simple moving average, or fallback when the
// series is shorter than the period.
func smaLast(series []float64, period int, fallback float64) float64 {
	if len(series) < period {
		return fallback
	}
	sma := talib.Sma(series, period)
	return sma[len(sma)-1]
}

func historyStart(tradeDate string, lookbackDays int) (string, error) {
	end, err := time.Parse("2006-01-02", tradeDate)
	if err != nil {
		return "", err
	}
	days := lookbackDays + 10
	if lookbackDays*2 > days {
		days = lookbackDays * 2
	}
	return end.AddDate(0, 0, -days).Format("2006-01-02"), nil
}

func tail(s []float64, n int) []float64 {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
