package indicator

type Cross string

const (
	CrossGolden  Cross = "golden_cross"
	CrossDeath   Cross = "death_cross"
	CrossBullish Cross = "bullish"
	CrossBearish Cross = "bearish"
)

type MACDResult struct {
	DIF  []float64
	DEA  []float64
	Hist []float64
	// Latest scalar values.
	LatestDIF  float64
	LatestDEA  float64
	LatestHist float64
	Cross      Cross
}

// MACD computes DIF = EMA(fast) − EMA(slow), DEA = EMA(signal) of DIF, and
// histogram = 2×(DIF−DEA). Requires slow+signal bars.
func MACD(closes []float64, fast, slow, signal int) (*MACDResult, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return nil, ErrInsufficientHistory
	}
	if len(closes) < slow+signal {
		return nil, ErrInsufficientHistory
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea := EMA(dif, signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = 2 * (dif[i] - dea[i])
	}

	n := len(closes)
	res := &MACDResult{
		DIF:        dif,
		DEA:        dea,
		Hist:       hist,
		LatestDIF:  dif[n-1],
		LatestDEA:  dea[n-1],
		LatestHist: hist[n-1],
		Cross:      classifyCross(dif[n-2], dea[n-2], dif[n-1], dea[n-1]),
	}
	return res, nil
}

// classifyCross is order-sensitive: a golden cross requires the previous DIF
// at or below the previous DEA and the current DIF above the current DEA.
func classifyCross(prevDIF, prevDEA, curDIF, curDEA float64) Cross {
	switch {
	case prevDIF <= prevDEA && curDIF > curDEA:
		return CrossGolden
	case prevDIF >= prevDEA && curDIF < curDEA:
		return CrossDeath
	case curDIF > curDEA:
		return CrossBullish
	default:
		return CrossBearish
	}
}
