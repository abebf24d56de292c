package signal

import (
	"errors"
	"testing"
	"time"

	"quant-assistant/internal/indicator"
	"quant-assistant/internal/market"
)

func testBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{Lookback: 30, Window: 5, ThresholdPct: 1, VolumeMult: 1.2, VolumePeriod: 10}
}

func bar(i int, close, high, low, volume float64) market.Bar {
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	return market.Bar{
		Date:   day.AddDate(0, 0, i).Format("2006-01-02"),
		Open:   close,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
}

// resistanceSeries carries a clear swing high at 110 followed by a pullback,
// so the prior bars define resistance 110 above the previous close 105.
func resistanceSeries(lastClose, lastVolume float64) *market.Series {
	s := &market.Series{Symbol: "sh000001"}
	for i := 0; i < 18; i++ {
		s.Bars = append(s.Bars, bar(i, 100, 101, 99, 100))
	}
	s.Bars = append(s.Bars, bar(18, 103, 104, 102, 100))
	s.Bars = append(s.Bars, bar(19, 106, 107, 105, 100))
	s.Bars = append(s.Bars, bar(20, 109, 110, 108, 100))
	for i := 21; i < 39; i++ {
		s.Bars = append(s.Bars, bar(i, 105, 106, 104, 100))
	}
	s.Bars = append(s.Bars, bar(39, lastClose, lastClose+0.5, 104, lastVolume))
	return s
}

func supportSeries(lastClose, lastVolume float64) *market.Series {
	s := &market.Series{Symbol: "sh000001"}
	for i := 0; i < 18; i++ {
		s.Bars = append(s.Bars, bar(i, 100, 101, 99, 100))
	}
	s.Bars = append(s.Bars, bar(18, 97, 98, 96, 100))
	s.Bars = append(s.Bars, bar(19, 94, 95, 93, 100))
	s.Bars = append(s.Bars, bar(20, 91, 92, 90, 100))
	for i := 21; i < 39; i++ {
		s.Bars = append(s.Bars, bar(i, 95, 96, 94, 100))
	}
	s.Bars = append(s.Bars, bar(39, lastClose, lastClose+0.5, lastClose-0.5, lastVolume))
	return s
}

func TestBreakout_BuyOnVolume(t *testing.T) {
	sig, err := Breakout(resistanceSeries(112, 300), testBreakoutConfig())
	if err != nil {
		t.Fatalf("breakout: %v", err)
	}
	if sig.Direction != Bullish || sig.Type != TypeBreakout {
		t.Fatalf("signal = %+v, want bullish breakout", sig)
	}
	if sig.Strength <= 0 || sig.Confidence <= 0 {
		t.Errorf("strength=%v confidence=%v", sig.Strength, sig.Confidence)
	}
}

func TestBreakout_NoVolumeNoBuy(t *testing.T) {
	// Same price break, flat volume: the breakout is not confirmed.
	sig, err := Breakout(resistanceSeries(112, 100), testBreakoutConfig())
	if err != nil {
		t.Fatalf("breakout: %v", err)
	}
	if sig.Direction != Neutral {
		t.Errorf("direction = %s, want neutral without volume confirmation", sig.Direction)
	}
}

func TestBreakout_InsideRangeIsNeutral(t *testing.T) {
	sig, err := Breakout(resistanceSeries(108, 300), testBreakoutConfig())
	if err != nil {
		t.Fatalf("breakout: %v", err)
	}
	if sig.Direction != Neutral {
		t.Errorf("direction = %s, want neutral below the threshold", sig.Direction)
	}
}

func TestBreakout_SellThroughSupport(t *testing.T) {
	sig, err := Breakout(supportSeries(88, 300), testBreakoutConfig())
	if err != nil {
		t.Fatalf("breakout: %v", err)
	}
	if sig.Direction != Bearish {
		t.Fatalf("signal = %+v, want bearish breakdown", sig)
	}
}

func TestBreakout_InsufficientHistory(t *testing.T) {
	s := &market.Series{Symbol: "sh000001"}
	for i := 0; i < 20; i++ {
		s.Bars = append(s.Bars, bar(i, 100, 101, 99, 100))
	}
	if _, err := Breakout(s, testBreakoutConfig()); !errors.Is(err, indicator.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestLevels(t *testing.T) {
	s := resistanceSeries(112, 300)
	prior := &market.Series{Symbol: s.Symbol, Bars: s.Bars[:len(s.Bars)-1]}
	support, resistance := Levels(prior, 30, 5, 105)
	if resistance != 110 {
		t.Errorf("resistance = %v, want 110", resistance)
	}
	if support != 0 {
		t.Errorf("support = %v, want none", support)
	}
}
