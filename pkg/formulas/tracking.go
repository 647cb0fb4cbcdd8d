package formulas

// ForwardReturns computes percentage returns of each close against the
// source close, up to horizon entries. Returns nil when the source close is
// not positive.
func ForwardReturns(sourceClose float64, closes []float64, horizon int) []float64 {
	if sourceClose <= 0 || len(closes) == 0 {
		return nil
	}
	if len(closes) > horizon {
		closes = closes[:horizon]
	}
	out := make([]float64, len(closes))
	for i, c := range closes {
		out[i] = (c - sourceClose) / sourceClose * 100
	}
	return out
}

// SourceDrawdown is the worst close within the window relative to the
// source close, as a percentage. Zero or positive means no close ever
// dipped below the source.
func SourceDrawdown(sourceClose float64, closes []float64, horizon int) *float64 {
	if sourceClose <= 0 || len(closes) == 0 {
		return nil
	}
	if len(closes) > horizon {
		closes = closes[:horizon]
	}
	min := closes[0]
	for _, c := range closes[1:] {
		if c < min {
			min = c
		}
	}
	if min > sourceClose {
		min = sourceClose
	}
	dd := (min - sourceClose) / sourceClose * 100
	return &dd
}

// WinRate is the share of strictly positive returns.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}
