package signal

import (
	"fmt"

	"quant-assistant/internal/indicator"
	"quant-assistant/internal/market"
)

type BreakoutConfig struct {
	Lookback     int     `yaml:"lookback" default:"60"`       // bars scanned for extrema
	Window       int     `yaml:"window" default:"5"`          // local-extremum window
	ThresholdPct float64 `yaml:"threshold_pct" default:"1"`   // breakout margin in percent
	VolumeMult   float64 `yaml:"volume_mult" default:"1.2"`   // required volume multiple
	VolumePeriod int     `yaml:"volume_period" default:"20"`  // volume average window
}

func DefaultBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{
		Lookback:     60,
		Window:       5,
		ThresholdPct: 1,
		VolumeMult:   1.2,
		VolumePeriod: 20,
	}
}

// Breakout fires a buy when the close clears the nearest resistance by the
// threshold on elevated volume, and a sell symmetrically at support. With the
// price strictly between the two levels no signal is emitted.
func Breakout(series *market.Series, cfg BreakoutConfig) (Signal, error) {
	if cfg.Lookback <= 0 {
		cfg = DefaultBreakoutConfig()
	}
	minBars := cfg.Lookback
	if cfg.VolumePeriod+1 > minBars {
		minBars = cfg.VolumePeriod + 1
	}
	if len(series.Bars) < minBars {
		return Signal{}, indicator.ErrInsufficientHistory
	}

	// Levels are anchored on the bars before the current one, relative to the
	// previous close: a level the current bar just broke must still count.
	n := len(series.Bars)
	close := series.Bars[n-1].Close
	prior := &market.Series{Symbol: series.Symbol, Bars: series.Bars[:n-1]}
	support, resistance := Levels(prior, cfg.Lookback, cfg.Window, series.Bars[n-2].Close)

	volRatio, err := indicator.VolumeRatio(series.Volumes(), cfg.VolumePeriod)
	if err != nil {
		return Signal{}, err
	}
	volumeConfirmed := volRatio >= cfg.VolumeMult

	if resistance > 0 && close > resistance*(1+cfg.ThresholdPct/100) && volumeConfirmed {
		margin := (close/resistance - 1) * 100
		return Signal{
			Type:        TypeBreakout,
			Direction:   Bullish,
			Strength:    clamp(40+margin*20+volRatio*10, 0, 100),
			Confidence:  clamp(0.4+volRatio/5, 0, 1),
			Description: fmt.Sprintf("close %.2f broke resistance %.2f by %.2f%% on %.1fx volume", close, resistance, margin, volRatio),
		}, nil
	}
	if support > 0 && close < support*(1-cfg.ThresholdPct/100) && volumeConfirmed {
		margin := (1 - close/support) * 100
		return Signal{
			Type:        TypeBreakout,
			Direction:   Bearish,
			Strength:    clamp(40+margin*20+volRatio*10, 0, 100),
			Confidence:  clamp(0.4+volRatio/5, 0, 1),
			Description: fmt.Sprintf("close %.2f broke support %.2f by %.2f%% on %.1fx volume", close, support, margin, volRatio),
		}, nil
	}
	return Signal{
		Type:        TypeBreakout,
		Direction:   Neutral,
		Description: fmt.Sprintf("close %.2f between support %.2f and resistance %.2f", close, support, resistance),
	}, nil
}

// Levels returns the nearest local-extremum levels around price: the highest
// local-minimum low below it (support) and the lowest local-maximum high
// above it (resistance). Either is 0 when no such extremum exists in the
// lookback range.
func Levels(series *market.Series, lookback, window int, price float64) (support, resistance float64) {
	bars := series.Bars
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	half := window / 2
	for i := half; i < len(bars)-half; i++ {
		isMax, isMin := true, true
		for j := i - half; j <= i+half; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= bars[i].High {
				isMax = false
			}
			if bars[j].Low <= bars[i].Low {
				isMin = false
			}
		}
		if isMax && bars[i].High > price {
			if resistance == 0 || bars[i].High < resistance {
				resistance = bars[i].High
			}
		}
		if isMin && bars[i].Low < price {
			if support == 0 || bars[i].Low > support {
				support = bars[i].Low
			}
		}
	}
	return support, resistance
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
