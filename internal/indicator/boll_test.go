package indicator

import (
	"math"
	"testing"
)

func TestBollinger_HandComputed(t *testing.T) {
	res, err := Bollinger([]float64{1, 2, 3, 4, 5}, 3, 2)
	if err != nil {
		t.Fatalf("bollinger: %v", err)
	}
	// Last window [3 4 5]: mean 4, sample std 1.
	assertClose(t, res.LatestMiddle, 4, 1e-9, "middle")
	assertClose(t, res.LatestUpper, 6, 1e-9, "upper")
	assertClose(t, res.LatestLower, 2, 1e-9, "lower")
	assertClose(t, res.WidthPct, 100, 1e-9, "width pct")
	assertClose(t, res.PositionPct, 75, 1e-9, "position pct")

	for i := 0; i < 2; i++ {
		if !math.IsNaN(res.Middle[i]) || !math.IsNaN(res.Upper[i]) || !math.IsNaN(res.Lower[i]) {
			t.Errorf("bar %d before the first full window should be NaN", i)
		}
	}
}

func TestBollinger_BandOrdering(t *testing.T) {
	closes := []float64{10, 12, 11, 14, 13, 15, 14, 16, 12, 11}
	res, err := Bollinger(closes, 5, 2)
	if err != nil {
		t.Fatalf("bollinger: %v", err)
	}
	for i := 4; i < len(closes); i++ {
		if res.Upper[i] < res.Middle[i] || res.Middle[i] < res.Lower[i] {
			t.Errorf("band ordering broken at %d: %v %v %v", i, res.Upper[i], res.Middle[i], res.Lower[i])
		}
	}
}

func TestBollinger_ZeroVariance(t *testing.T) {
	res, err := Bollinger([]float64{5, 5, 5}, 3, 2)
	if err != nil {
		t.Fatalf("bollinger: %v", err)
	}
	assertClose(t, res.LatestUpper, 5, 1e-9, "upper")
	assertClose(t, res.LatestLower, 5, 1e-9, "lower")
	assertClose(t, res.PositionPct, 50, 1e-9, "position pct on collapsed band")
	assertClose(t, res.WidthPct, 0, 1e-9, "width pct on collapsed band")
}

func TestBollinger_InsufficientHistory(t *testing.T) {
	if _, err := Bollinger([]float64{1, 2}, 3, 2); err != ErrInsufficientHistory {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
	if _, err := Bollinger([]float64{1, 2, 3}, 1, 2); err != ErrInsufficientHistory {
		t.Errorf("expected rejection of period <= 1, got %v", err)
	}
}
