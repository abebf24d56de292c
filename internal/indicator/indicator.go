// Package indicator computes technical indicators over daily OHLCV series.
//
// Every function is a pure transform: it takes a series plus fixed parameters
// and returns the full indicator series (leading values are NaN where the
// lookback window has insufficient history) together with the latest scalar.
// When the series is shorter than an indicator's minimum window the function
// returns ErrInsufficientHistory instead of a fabricated value.
package indicator

import (
	"errors"

	"quant-assistant/internal/market"
)

var ErrInsufficientHistory = errors.New("indicator: insufficient history")

type Params struct {
	MACDFast         int     `yaml:"macd_fast" default:"12"`
	MACDSlow         int     `yaml:"macd_slow" default:"26"`
	MACDSignal       int     `yaml:"macd_signal" default:"9"`
	BollPeriod       int     `yaml:"boll_period" default:"20"`
	BollK            float64 `yaml:"boll_k" default:"2"`
	ATRPeriod        int     `yaml:"atr_period" default:"14"`
	RSIPeriod        int     `yaml:"rsi_period" default:"14"`
	VolumePeriod     int     `yaml:"volume_period" default:"20"`
	DivergenceWindow int     `yaml:"divergence_window" default:"30"`
}

func DefaultParams() Params {
	return Params{
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		BollPeriod:       20,
		BollK:            2,
		ATRPeriod:        14,
		RSIPeriod:        14,
		VolumePeriod:     20,
		DivergenceWindow: 30,
	}
}

// Set bundles every indicator computed from one series. Sub-indicators that
// lacked history are left nil (or flagged absent) so signal composition can
// degrade gracefully instead of consuming garbage.
type Set struct {
	Close float64

	MACD *MACDResult
	Boll *BollResult
	ATR  *ATRResult
	OBV  []float64

	RSI    float64
	HasRSI bool

	VolumeRatio    float64
	HasVolumeRatio bool

	Divergence *Divergence
}

// Compute recomputes the full indicator set for the series. There is no
// incremental state: each call starts from the raw bars.
func Compute(series *market.Series, p Params) (*Set, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	closes := series.Closes()
	volumes := series.Volumes()

	set := &Set{Close: closes[len(closes)-1]}

	if macd, err := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal); err == nil {
		set.MACD = macd
	}
	if boll, err := Bollinger(closes, p.BollPeriod, p.BollK); err == nil {
		set.Boll = boll
	}
	if atr, err := ATR(series.Bars, p.ATRPeriod); err == nil {
		set.ATR = atr
	}
	set.OBV = OBV(series.Bars)
	if rsi, err := RSI(closes, p.RSIPeriod); err == nil {
		set.RSI = rsi
		set.HasRSI = true
	}
	if vr, err := VolumeRatio(volumes, p.VolumePeriod); err == nil {
		set.VolumeRatio = vr
		set.HasVolumeRatio = true
	}
	if len(set.OBV) > 0 {
		if div, err := DetectDivergence(closes, set.OBV, p.DivergenceWindow); err == nil {
			set.Divergence = &div
		}
	}
	return set, nil
}
