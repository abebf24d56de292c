// Package position converts a signal's statistical edge into a bounded
// leverage recommendation via the Kelly criterion.
package position

import (
	"fmt"

	"quant-assistant/internal/signal"
)

type Fraction string

const (
	FractionFull    Fraction = "full"
	FractionHalf    Fraction = "half"
	FractionQuarter Fraction = "quarter"
)

// EdgeStats is the measured edge of a strategy: win probability and the
// average win/loss per trade as fractions of capital.
type EdgeStats struct {
	WinRate float64 `yaml:"win_rate" json:"win_rate" default:"0.6" validate:"min=0,max=1"`
	AvgWin  float64 `yaml:"avg_win" json:"avg_win" default:"0.06" validate:"gt=0"`
	AvgLoss float64 `yaml:"avg_loss" json:"avg_loss" default:"0.04" validate:"gt=0"`
}

// Advice is an immutable sizing recommendation derived from a signal plus an
// edge estimate.
type Advice struct {
	Fraction Fraction `json:"fraction"`
	Kelly    float64  `json:"kelly"`
	Applied  float64  `json:"applied"`
	Leverage float64  `json:"leverage"`
	Action   string   `json:"action"`
	Reasons  []string `json:"reasons"`
}

// Kelly returns (p·b − q)/b with b = avgWin/avgLoss and q = 1−p. The result
// is clamped to a minimum of 0; a non-positive average loss yields 0 because
// the ratio is undefined there.
func Kelly(winRate, avgWin, avgLoss float64) float64 {
	if avgLoss <= 0 || avgWin <= 0 {
		return 0
	}
	if winRate < 0 {
		winRate = 0
	}
	if winRate > 1 {
		winRate = 1
	}
	b := avgWin / avgLoss
	f := (winRate*b - (1 - winRate)) / b
	if f < 0 {
		return 0
	}
	return f
}

// Scale applies the fractional Kelly variant.
func Scale(full float64, frac Fraction) float64 {
	switch frac {
	case FractionHalf:
		return full / 2
	case FractionQuarter:
		return full / 4
	default:
		return full
	}
}

// Leverage maps a position fraction to a leverage multiplier, never below 1.
func Leverage(fraction float64) float64 {
	if fraction < 0 {
		fraction = 0
	}
	return 1 + fraction
}

// Advise sizes a position for the given signal. Bearish and neutral signals
// stay at base leverage; only a bullish signal deploys the Kelly fraction,
// discounted by the signal's confidence.
func Advise(sig signal.Signal, edge EdgeStats, frac Fraction) Advice {
	full := Kelly(edge.WinRate, edge.AvgWin, edge.AvgLoss)
	applied := Scale(full, frac)

	adv := Advice{
		Fraction: frac,
		Kelly:    full,
		Applied:  applied,
		Leverage: 1,
		Reasons: []string{
			fmt.Sprintf("%s signal: %s", sig.Type, sig.Description),
			fmt.Sprintf("edge: win_rate=%.2f avg_win=%.3f avg_loss=%.3f kelly=%.3f", edge.WinRate, edge.AvgWin, edge.AvgLoss, full),
		},
	}

	switch sig.Direction {
	case signal.Bullish:
		adv.Applied = applied * sig.Confidence
		adv.Leverage = Leverage(adv.Applied)
		adv.Action = "add"
		adv.Reasons = append(adv.Reasons, fmt.Sprintf("confidence %.2f scales applied fraction to %.3f", sig.Confidence, adv.Applied))
	case signal.Bearish:
		adv.Applied = 0
		adv.Action = "reduce"
		adv.Reasons = append(adv.Reasons, "bearish signal: hold base position only")
	default:
		adv.Applied = 0
		adv.Action = "hold"
		adv.Reasons = append(adv.Reasons, "neutral signal: no sizing change")
	}
	if full == 0 {
		adv.Action = "hold"
		adv.Reasons = append(adv.Reasons, "no positive edge: kelly fraction is zero")
	}
	return adv
}
