package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"quant-assistant/internal/indicator"
	"quant-assistant/internal/market"
	"quant-assistant/internal/position"
	"quant-assistant/internal/signal"
	"quant-assistant/internal/store"
)

type seriesProvider struct {
	series *market.Series
}

func (p *seriesProvider) Name() string { return "fake" }

func (p *seriesProvider) FetchQuotes(_ context.Context, _ []string) ([]market.Quote, error) {
	return nil, errors.New("quotes not implemented")
}

func (p *seriesProvider) FetchSeries(_ context.Context, _ string, _ int) (*market.Series, error) {
	return p.series, nil
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
			Volume: 1000 + float64(i%7)*40,
		})
	}
	return s
}

func newTestAnalyzer(t *testing.T, series *market.Series, st *store.Store) *Analyzer {
	t.Helper()
	mkt, err := market.NewMultiProvider(nil, time.Second, zerolog.Nop(), nil, &seriesProvider{series: series})
	if err != nil {
		t.Fatalf("new multiprovider: %v", err)
	}
	cfg := Config{
		Params:     indicator.DefaultParams(),
		Breakout:   signal.DefaultBreakoutConfig(),
		Edge:       position.EdgeStats{WinRate: 0.6, AvgWin: 0.06, AvgLoss: 0.04},
		Fraction:   position.FractionQuarter,
		SeriesBars: 120,
	}
	return New(mkt, st, cfg, nil, zerolog.Nop())
}

func TestAnalyze_FullReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	a := newTestAnalyzer(t, trendSeries(130), st)
	report, err := a.Analyze(context.Background(), "sh000001", market.Options{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if report.Symbol != "sh000001" || report.Source != "fake" {
		t.Errorf("identity: %+v", report)
	}
	if report.Bars != 120 {
		t.Errorf("bars = %d, want the requested window", report.Bars)
	}
	if report.Indicators.MACDDIF == nil || report.Indicators.RSI == nil || report.Indicators.BollUpper == nil {
		t.Error("expected indicator summary filled on full history")
	}
	if len(report.Signals) < 2 {
		t.Fatalf("signals = %d, want resonance plus breakout", len(report.Signals))
	}
	if report.Signals[0].Type != signal.TypeResonance {
		t.Errorf("first signal = %s, want resonance", report.Signals[0].Type)
	}
	if report.Advice.Action == "" {
		t.Error("advice action not set")
	}

	// Non-neutral signals are persisted under today's date.
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	today := time.Now().In(loc).Format("2006-01-02")
	recs, err := st.QuerySignalsByDate(today, "sh000001", "", 100, 0)
	if err != nil {
		t.Fatalf("query signals: %v", err)
	}
	var nonNeutral int
	for _, sig := range report.Signals {
		if sig.Direction != signal.Neutral {
			nonNeutral++
		}
	}
	if len(recs) != nonNeutral {
		t.Errorf("persisted %d signals, want %d", len(recs), nonNeutral)
	}
}

func TestAnalyze_ShortHistoryStillReports(t *testing.T) {
	// 40 bars: MACD and breakout lack history but the report must not fail.
	a := newTestAnalyzer(t, trendSeries(40), nil)
	report, err := a.Analyze(context.Background(), "sh000001", market.Options{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Bars != 40 {
		t.Errorf("bars = %d", report.Bars)
	}
	if len(report.Signals) == 0 {
		t.Error("expected at least the resonance signal")
	}
}

func TestPickPrimary(t *testing.T) {
	res := signal.Signal{Type: signal.TypeResonance, Direction: signal.Bullish, Strength: 50}
	boStrong := signal.Signal{Type: signal.TypeBreakout, Direction: signal.Bullish, Strength: 70}
	boWeak := signal.Signal{Type: signal.TypeBreakout, Direction: signal.Bullish, Strength: 30}
	boNeutral := signal.Signal{Type: signal.TypeBreakout, Direction: signal.Neutral, Strength: 90}

	if got := pickPrimary([]signal.Signal{res, boStrong}); got.Type != signal.TypeBreakout {
		t.Errorf("strong breakout should win, got %s", got.Type)
	}
	if got := pickPrimary([]signal.Signal{res, boWeak}); got.Type != signal.TypeResonance {
		t.Errorf("weak breakout should lose, got %s", got.Type)
	}
	if got := pickPrimary([]signal.Signal{res, boNeutral}); got.Type != signal.TypeResonance {
		t.Errorf("neutral breakout should never lead, got %s", got.Type)
	}
}
