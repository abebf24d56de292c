package indicator

import (
	"math"
	"testing"
	"time"

	"quant-assistant/internal/market"
)

func assertClose(t *testing.T, got, want, tol float64, name string) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}

func trendSeries(n int) *market.Series {
	s := &market.Series{Symbol: "sh000001"}
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)*0.5
		s.Bars = append(s.Bars, market.Bar{
			Date:   day.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   c - 0.3,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + float64(i%5)*50,
		})
	}
	return s
}

func TestCompute_FullHistory(t *testing.T) {
	set, err := Compute(trendSeries(60), DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if set.MACD == nil || set.Boll == nil || set.ATR == nil {
		t.Errorf("expected all windowed indicators present: macd=%v boll=%v atr=%v", set.MACD, set.Boll, set.ATR)
	}
	if !set.HasRSI || !set.HasVolumeRatio {
		t.Errorf("expected rsi and volume ratio present")
	}
	if len(set.OBV) != 60 {
		t.Errorf("obv length = %d", len(set.OBV))
	}
	if set.Divergence == nil {
		t.Error("expected divergence result")
	}
	assertClose(t, set.Close, 100+59*0.5, 1e-9, "close")
}

func TestCompute_ShortHistoryDegrades(t *testing.T) {
	set, err := Compute(trendSeries(10), DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if set.MACD != nil || set.Boll != nil || set.ATR != nil {
		t.Error("windowed indicators should be absent on short history")
	}
	if set.HasRSI || set.HasVolumeRatio {
		t.Error("rsi/volume ratio should be absent on short history")
	}
	if set.Divergence != nil {
		t.Error("divergence should be absent on short history")
	}
	if len(set.OBV) != 10 {
		t.Errorf("obv length = %d", len(set.OBV))
	}
	assertClose(t, set.Close, 104.5, 1e-9, "close")
}

func TestCompute_RejectsInvalidSeries(t *testing.T) {
	s := trendSeries(5)
	s.Bars[3].Date = s.Bars[2].Date
	if _, err := Compute(s, DefaultParams()); err == nil {
		t.Error("expected validation error")
	}
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{2, 4, 8}, 3)
	want := []float64{2, 3, 5.5}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		assertClose(t, got[i], want[i], 1e-9, "ema")
	}

	if EMA(nil, 3) != nil {
		t.Error("expected nil for empty input")
	}
	if EMA([]float64{1}, 0) != nil {
		t.Error("expected nil for non-positive span")
	}
}

func TestSMA(t *testing.T) {
	got, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("sma: %v", err)
	}
	assertClose(t, got, 4, 1e-9, "sma")

	if _, err := SMA([]float64{1, 2}, 3); err != ErrInsufficientHistory {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}
