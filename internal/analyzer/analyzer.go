// Package analyzer runs the full pipeline for one symbol: fetch series,
// compute indicators, generate signals, size the position.
package analyzer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"quant-assistant/internal/indicator"
	"quant-assistant/internal/market"
	"quant-assistant/internal/metrics"
	"quant-assistant/internal/position"
	"quant-assistant/internal/signal"
	"quant-assistant/internal/store"
)

type Config struct {
	Params     indicator.Params
	Breakout   signal.BreakoutConfig
	Edge       position.EdgeStats
	Fraction   position.Fraction
	SeriesBars int
}

type Analyzer struct {
	provider *market.MultiProvider
	store    *store.Store
	cfg      Config
	met      *metrics.Metrics
	log      zerolog.Logger
}

// IndicatorSummary is the scalar snapshot of the set, shaped for JSON
// consumers. Absent indicators stay as null pointers.
type IndicatorSummary struct {
	Close       float64               `json:"close"`
	MACDCross   indicator.Cross       `json:"macd_cross,omitempty"`
	MACDDIF     *float64              `json:"macd_dif,omitempty"`
	MACDDEA     *float64              `json:"macd_dea,omitempty"`
	MACDHist    *float64              `json:"macd_hist,omitempty"`
	BollUpper   *float64              `json:"boll_upper,omitempty"`
	BollMiddle  *float64              `json:"boll_middle,omitempty"`
	BollLower   *float64              `json:"boll_lower,omitempty"`
	BollPos     *float64              `json:"boll_position_pct,omitempty"`
	BollWidth   *float64              `json:"boll_width_pct,omitempty"`
	ATR         *float64              `json:"atr,omitempty"`
	ATRPct      *float64              `json:"atr_pct,omitempty"`
	RSI         *float64              `json:"rsi,omitempty"`
	VolumeRatio *float64              `json:"volume_ratio,omitempty"`
	OBV         *float64              `json:"obv,omitempty"`
	Divergence  *indicator.Divergence `json:"divergence,omitempty"`
}

type Report struct {
	Symbol      string           `json:"symbol"`
	Source      string           `json:"source"`
	Cached      bool             `json:"cached"`
	Stale       bool             `json:"stale"`
	Bars        int              `json:"bars"`
	Indicators  IndicatorSummary `json:"indicators"`
	Signals     []signal.Signal  `json:"signals"`
	Advice      position.Advice  `json:"advice"`
	GeneratedAt int64            `json:"generated_at"`
}

func New(provider *market.MultiProvider, st *store.Store, cfg Config, met *metrics.Metrics, log zerolog.Logger) *Analyzer {
	if cfg.SeriesBars <= 0 {
		cfg.SeriesBars = 120
	}
	if cfg.Fraction == "" {
		cfg.Fraction = position.FractionQuarter
	}
	return &Analyzer{provider: provider, store: st, cfg: cfg, met: met, log: log}
}

// Analyze fetches the daily series and derives the full report. Signals are
// persisted as a side effect; persistence failures are logged, not fatal.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, opts market.Options) (*Report, error) {
	res, err := a.provider.GetSeries(ctx, symbol, a.cfg.SeriesBars, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	set, err := indicator.Compute(res.Series, a.cfg.Params)
	if err != nil {
		return nil, err
	}
	a.met.ObserveIndicator(time.Since(start))

	signals := make([]signal.Signal, 0, 3)
	signals = append(signals, signal.Resonance(set))
	if bo, err := signal.Breakout(res.Series, a.cfg.Breakout); err == nil {
		signals = append(signals, bo)
	}
	if div, ok := signal.FromDivergence(set.Divergence); ok {
		signals = append(signals, div)
	}

	primary := pickPrimary(signals)
	advice := position.Advise(primary, a.cfg.Edge, a.cfg.Fraction)

	now := time.Now().Unix()
	for _, sig := range signals {
		a.met.ObserveSignal(string(sig.Type), string(sig.Direction))
		if sig.Direction == signal.Neutral {
			continue
		}
		rec := store.SignalRecord{
			TS:          now,
			Symbol:      res.Series.Symbol,
			Type:        string(sig.Type),
			Direction:   string(sig.Direction),
			Strength:    sig.Strength,
			Confidence:  sig.Confidence,
			Description: sig.Description,
		}
		if err := a.store.InsertSignal(rec); err != nil {
			a.log.Warn().Str("symbol", symbol).Err(err).Msg("persist signal failed")
		}
	}

	return &Report{
		Symbol:      res.Series.Symbol,
		Source:      res.Source,
		Cached:      res.Cached,
		Stale:       res.Stale,
		Bars:        len(res.Series.Bars),
		Indicators:  summarize(set),
		Signals:     signals,
		Advice:      advice,
		GeneratedAt: now,
	}, nil
}

// pickPrimary prefers a firing breakout over the resonance composite, since a
// confirmed level break carries more information than zone agreement.
func pickPrimary(signals []signal.Signal) signal.Signal {
	var primary signal.Signal
	for _, sig := range signals {
		if sig.Type == signal.TypeResonance {
			primary = sig
		}
	}
	for _, sig := range signals {
		if sig.Type == signal.TypeBreakout && sig.Direction != signal.Neutral && sig.Strength > primary.Strength {
			primary = sig
		}
	}
	return primary
}

func summarize(set *indicator.Set) IndicatorSummary {
	sum := IndicatorSummary{Close: set.Close, Divergence: set.Divergence}
	if set.MACD != nil {
		sum.MACDCross = set.MACD.Cross
		sum.MACDDIF = ptr(set.MACD.LatestDIF)
		sum.MACDDEA = ptr(set.MACD.LatestDEA)
		sum.MACDHist = ptr(set.MACD.LatestHist)
	}
	if set.Boll != nil {
		sum.BollUpper = ptr(set.Boll.LatestUpper)
		sum.BollMiddle = ptr(set.Boll.LatestMiddle)
		sum.BollLower = ptr(set.Boll.LatestLower)
		sum.BollPos = ptr(set.Boll.PositionPct)
		sum.BollWidth = ptr(set.Boll.WidthPct)
	}
	if set.ATR != nil {
		sum.ATR = ptr(set.ATR.Latest)
		sum.ATRPct = ptr(set.ATR.LatestPct)
	}
	if set.HasRSI {
		sum.RSI = ptr(set.RSI)
	}
	if set.HasVolumeRatio {
		sum.VolumeRatio = ptr(set.VolumeRatio)
	}
	if len(set.OBV) > 0 {
		sum.OBV = ptr(set.OBV[len(set.OBV)-1])
	}
	return sum
}

func ptr(v float64) *float64 { return &v }
