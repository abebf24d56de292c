package signal

import (
	"fmt"
	"math"
	"strings"

	"quant-assistant/internal/indicator"
)

// Sub-weights of the resonance vote. Indicators that could not be computed
// are excluded from the denominator instead of dragging the score to zero.
const (
	weightMACD   = 0.35
	weightRSI    = 0.25
	weightBoll   = 0.20
	weightVolume = 0.20
)

// neutralBand is the score magnitude below which the composite stays neutral.
const neutralBand = 0.15

// Resonance scores agreement across MACD state, RSI zone, Bollinger position
// and volume confirmation into one directional signal.
func Resonance(set *indicator.Set) Signal {
	type vote struct {
		name   string
		weight float64
		value  float64 // -1..1, positive = bullish
	}
	votes := make([]vote, 0, 4)

	if set.MACD != nil {
		votes = append(votes, vote{"macd", weightMACD, macdVote(set.MACD.Cross)})
	}
	if set.HasRSI {
		votes = append(votes, vote{"rsi", weightRSI, rsiVote(set.RSI)})
	}
	if set.Boll != nil {
		votes = append(votes, vote{"boll", weightBoll, bollVote(set.Boll.PositionPct)})
	}
	// Volume is a confirmation factor: it amplifies the trend the MACD
	// histogram points at, so it only counts when MACD is available.
	if set.HasVolumeRatio && set.MACD != nil {
		votes = append(votes, vote{"volume", weightVolume, volumeVote(set.VolumeRatio, set.MACD.LatestHist)})
	}

	if len(votes) == 0 {
		return Signal{Type: TypeResonance, Direction: Neutral, Description: "no indicators available"}
	}

	var weightSum, scoreSum float64
	parts := make([]string, 0, len(votes))
	for _, v := range votes {
		weightSum += v.weight
		scoreSum += v.weight * v.value
		parts = append(parts, fmt.Sprintf("%s=%+.2f", v.name, v.value))
	}
	score := scoreSum / weightSum // -1..1

	dir := Neutral
	if score > neutralBand {
		dir = Bullish
	} else if score < -neutralBand {
		dir = Bearish
	}

	coverage := weightSum / (weightMACD + weightRSI + weightBoll + weightVolume)
	return Signal{
		Type:        TypeResonance,
		Direction:   dir,
		Strength:    math.Abs(score) * 100,
		Confidence:  coverage * (0.5 + 0.5*math.Abs(score)),
		Description: fmt.Sprintf("resonance score %+.2f (%s)", score, strings.Join(parts, ", ")),
	}
}

func macdVote(cross indicator.Cross) float64 {
	switch cross {
	case indicator.CrossGolden:
		return 1
	case indicator.CrossBullish:
		return 0.6
	case indicator.CrossDeath:
		return -1
	default:
		return -0.6
	}
}

func rsiVote(rsi float64) float64 {
	switch {
	case rsi < 30:
		return 1
	case rsi < 45:
		return 0.4
	case rsi > 70:
		return -1
	case rsi > 55:
		return -0.4
	default:
		return 0
	}
}

func bollVote(positionPct float64) float64 {
	switch {
	case positionPct < 10:
		return 1
	case positionPct < 25:
		return 0.5
	case positionPct > 90:
		return -1
	case positionPct > 75:
		return -0.5
	default:
		return 0
	}
}

func volumeVote(ratio, macdHist float64) float64 {
	trend := 0.0
	if macdHist > 0 {
		trend = 1
	} else if macdHist < 0 {
		trend = -1
	}
	switch {
	case ratio >= 1.5:
		return 0.8 * trend
	case ratio >= 1.2:
		return 0.4 * trend
	default:
		return 0
	}
}

// FromDivergence lifts a detected divergence into a warning signal. Returns
// ok=false when no divergence is present.
func FromDivergence(div *indicator.Divergence) (Signal, bool) {
	if div == nil || (!div.Top && !div.Bottom) {
		return Signal{}, false
	}
	if div.Top {
		return Signal{
			Type:        TypeDivergence,
			Direction:   Bearish,
			Strength:    60,
			Confidence:  0.5,
			Description: "price made a new window high without indicator confirmation",
		}, true
	}
	return Signal{
		Type:        TypeDivergence,
		Direction:   Bullish,
		Strength:    60,
		Confidence:  0.5,
		Description: "price made a new window low without indicator confirmation",
	}, true
}
