package indicator

import (
	"math"

	"quant-assistant/internal/market"
)

type ATRResult struct {
	TR  []float64
	ATR []float64
	// Latest scalar values.
	Latest    float64
	LatestPct float64
}

// ATR computes the average true range as a period-bar simple mean of the true
// range. The first bar's true range falls back to high−low (no previous
// close). LatestPct is the ATR as a percentage of the latest close.
func ATR(bars []market.Bar, period int) (*ATRResult, error) {
	if period <= 0 || len(bars) < period {
		return nil, ErrInsufficientHistory
	}

	n := len(bars)
	tr := make([]float64, n)
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < n; i++ {
		prevClose := bars[i-1].Close
		tr[i] = math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
	}

	atr := make([]float64, n)
	for i := 0; i < period-1; i++ {
		atr[i] = math.NaN()
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += tr[i]
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			atr[i] = sum / float64(period)
		}
	}

	res := &ATRResult{TR: tr, ATR: atr, Latest: atr[n-1]}
	if c := bars[n-1].Close; c > 0 {
		res.LatestPct = res.Latest / c * 100
	}
	return res, nil
}
