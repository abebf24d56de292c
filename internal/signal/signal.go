// Package signal combines indicator outputs into composite directional
// signals. Signals are immutable value objects once produced.
package signal

type Type string

const (
	TypeResonance  Type = "resonance"
	TypeBreakout   Type = "breakout"
	TypeDivergence Type = "divergence"
)

type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

type Signal struct {
	Type        Type      `json:"type"`
	Direction   Direction `json:"direction"`
	Strength    float64   `json:"strength"`   // 0–100
	Confidence  float64   `json:"confidence"` // 0–1
	Description string    `json:"description"`
}
