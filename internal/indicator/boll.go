package indicator

import "math"

type BollResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
	// Latest scalar values.
	LatestMiddle float64
	LatestUpper  float64
	LatestLower  float64
	WidthPct     float64
	PositionPct  float64
}

// Bollinger computes period-bar bands at k sample standard deviations.
// Bars before the first full window are NaN. PositionPct is defined as 50
// when the bands collapse (zero variance), never a division by zero.
func Bollinger(closes []float64, period int, k float64) (*BollResult, error) {
	if period <= 1 || k <= 0 {
		return nil, ErrInsufficientHistory
	}
	if len(closes) < period {
		return nil, ErrInsufficientHistory
	}

	n := len(closes)
	middle := make([]float64, n)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < period-1; i++ {
		middle[i] = math.NaN()
		upper[i] = math.NaN()
		lower[i] = math.NaN()
	}
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)
		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		std := math.Sqrt(variance / float64(period-1))
		middle[i] = mean
		upper[i] = mean + k*std
		lower[i] = mean - k*std
	}

	res := &BollResult{
		Middle:       middle,
		Upper:        upper,
		Lower:        lower,
		LatestMiddle: middle[n-1],
		LatestUpper:  upper[n-1],
		LatestLower:  lower[n-1],
	}
	if res.LatestMiddle != 0 {
		res.WidthPct = (res.LatestUpper - res.LatestLower) / res.LatestMiddle * 100
	}
	band := res.LatestUpper - res.LatestLower
	if band > 0 {
		res.PositionPct = (closes[n-1] - res.LatestLower) / band * 100
	} else {
		res.PositionPct = 50
	}
	return res, nil
}
