package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"quant-assistant/internal/cache"
	"quant-assistant/internal/metrics"
)

// Options tunes a single fetch. Stale cache entries are only served when the
// caller opts in; the default on total failure is the aggregated error.
type Options struct {
	AllowStale bool
}

type QuoteResult struct {
	Quotes []Quote `json:"quotes"`
	Source string  `json:"source"`
	Cached bool    `json:"cached"`
	Stale  bool    `json:"stale"`
}

type SeriesResult struct {
	Series *Series `json:"series"`
	Source string  `json:"source"`
	Cached bool    `json:"cached"`
	Stale  bool    `json:"stale"`
}

// MultiProvider tries adapters strictly in the configured order, consults and
// fills the cache, and coalesces concurrent fetches for the same key.
type MultiProvider struct {
	providers []Provider
	cache     cache.Store
	timeout   time.Duration
	log       zerolog.Logger
	met       *metrics.Metrics
	group     singleflight.Group
}

func NewMultiProvider(cs cache.Store, timeout time.Duration, log zerolog.Logger, met *metrics.Metrics, providers ...Provider) (*MultiProvider, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no market providers configured")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MultiProvider{
		providers: providers,
		cache:     cs,
		timeout:   timeout,
		log:       log,
		met:       met,
	}, nil
}

type quotePayload struct {
	Source string  `json:"source"`
	Quotes []Quote `json:"quotes"`
}

type seriesPayload struct {
	Source string  `json:"source"`
	Series *Series `json:"series"`
}

// GetQuotes returns live quotes for the symbol set, serving a fresh cache
// entry when one exists.
func (m *MultiProvider) GetQuotes(ctx context.Context, symbols []string, opts Options) (*QuoteResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols is empty")
	}
	key := quoteKey(symbols)

	if payload, ok := m.cacheGet(ctx, key); ok {
		var cached quotePayload
		if err := json.Unmarshal(payload, &cached); err == nil && len(cached.Quotes) > 0 {
			return &QuoteResult{Quotes: cached.Quotes, Source: cached.Source, Cached: true}, nil
		}
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		return m.fetchQuotes(ctx, key, symbols)
	})
	if err == nil {
		return v.(*QuoteResult), nil
	}

	if opts.AllowStale {
		if payload, ok := m.staleGet(ctx, key); ok {
			var cached quotePayload
			if uerr := json.Unmarshal(payload, &cached); uerr == nil && len(cached.Quotes) > 0 {
				m.log.Warn().Str("key", key).Err(err).Msg("all sources failed, serving stale cache")
				return &QuoteResult{Quotes: cached.Quotes, Source: cached.Source, Cached: true, Stale: true}, nil
			}
		}
	}
	return nil, err
}

// GetSeries returns a daily OHLCV series of up to `bars` bars.
func (m *MultiProvider) GetSeries(ctx context.Context, symbol string, bars int, opts Options) (*SeriesResult, error) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is empty")
	}
	if bars <= 0 {
		bars = 120
	}
	key := seriesKey(symbol)

	if payload, ok := m.cacheGet(ctx, key); ok {
		var cached seriesPayload
		if err := json.Unmarshal(payload, &cached); err == nil && cached.Series != nil && len(cached.Series.Bars) >= bars {
			return &SeriesResult{Series: tail(cached.Series, bars), Source: cached.Source, Cached: true}, nil
		}
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		return m.fetchSeries(ctx, key, symbol, bars)
	})
	if err == nil {
		res := v.(*SeriesResult)
		return &SeriesResult{Series: tail(res.Series, bars), Source: res.Source}, nil
	}

	if opts.AllowStale {
		if payload, ok := m.staleGet(ctx, key); ok {
			var cached seriesPayload
			if uerr := json.Unmarshal(payload, &cached); uerr == nil && cached.Series != nil {
				m.log.Warn().Str("key", key).Err(err).Msg("all sources failed, serving stale cache")
				return &SeriesResult{Series: tail(cached.Series, bars), Source: cached.Source, Cached: true, Stale: true}, nil
			}
		}
	}
	return nil, err
}

func (m *MultiProvider) fetchQuotes(ctx context.Context, key string, symbols []string) (*QuoteResult, error) {
	attempts := make([]*FetchError, 0, len(m.providers))
	for _, p := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		quotes, err := m.attemptQuotes(ctx, p, symbols)
		if err != nil {
			fe := asFetchError(p.Name(), err)
			attempts = append(attempts, fe)
			m.met.ObserveAttempt(p.Name(), string(fe.Kind))
			m.log.Warn().Str("source", p.Name()).Err(err).Msg("quote fetch failed, trying next provider")
			continue
		}
		m.met.ObserveAttempt(p.Name(), "ok")
		m.cachePut(ctx, key, quotePayload{Source: p.Name(), Quotes: quotes})
		return &QuoteResult{Quotes: quotes, Source: p.Name()}, nil
	}
	return nil, &AllFailedError{Op: "quotes " + strings.Join(symbols, ","), Attempts: attempts}
}

func (m *MultiProvider) fetchSeries(ctx context.Context, key, symbol string, bars int) (*SeriesResult, error) {
	// Fetch more history than requested so the cached entry can serve
	// subsequent shorter requests without another network round trip.
	fetchBars := bars
	if fetchBars < 250 {
		fetchBars = 250
	}
	attempts := make([]*FetchError, 0, len(m.providers))
	for _, p := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, err := m.attemptSeries(ctx, p, symbol, fetchBars)
		if err != nil {
			if errors.Is(err, ErrSeriesUnsupported) {
				continue
			}
			fe := asFetchError(p.Name(), err)
			attempts = append(attempts, fe)
			m.met.ObserveAttempt(p.Name(), string(fe.Kind))
			m.log.Warn().Str("source", p.Name()).Str("symbol", symbol).Err(err).Msg("series fetch failed, trying next provider")
			continue
		}
		m.met.ObserveAttempt(p.Name(), "ok")
		m.cachePut(ctx, key, seriesPayload{Source: p.Name(), Series: series})
		return &SeriesResult{Series: series, Source: p.Name()}, nil
	}
	return nil, &AllFailedError{Op: "series " + symbol, Attempts: attempts}
}

func (m *MultiProvider) attemptQuotes(ctx context.Context, p Provider, symbols []string) ([]Quote, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	quotes, err := p.FetchQuotes(attemptCtx, symbols)
	if err != nil {
		return nil, err
	}
	if err := validateQuotes(quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

func (m *MultiProvider) attemptSeries(ctx context.Context, p Provider, symbol string, bars int) (*Series, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	series, err := p.FetchSeries(attemptCtx, symbol, bars)
	if err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

// validateQuotes rejects payloads without at least one usable price, so an
// HTTP 200 wrapping garbage never counts as a successful source.
func validateQuotes(quotes []Quote) error {
	if len(quotes) == 0 {
		return fmt.Errorf("empty quote payload")
	}
	for _, q := range quotes {
		if q.Price > 0 {
			return nil
		}
	}
	return fmt.Errorf("no quote with a positive price")
}

func (m *MultiProvider) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if m.cache == nil {
		return nil, false
	}
	payload, err := m.cache.Get(ctx, key)
	hit := err == nil
	m.met.ObserveCache(hit)
	return payload, hit
}

func (m *MultiProvider) staleGet(ctx context.Context, key string) ([]byte, bool) {
	sr, ok := m.cache.(cache.StaleReader)
	if !ok {
		return nil, false
	}
	payload, err := sr.GetStale(ctx, key)
	return payload, err == nil
}

func (m *MultiProvider) cachePut(ctx context.Context, key string, v any) {
	if m.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := m.cache.Put(ctx, key, payload); err != nil {
		m.log.Warn().Str("key", key).Err(err).Msg("cache write failed")
	}
}

func asFetchError(source string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return networkErr(source, fmt.Errorf("attempt timed out: %w", err))
	}
	return networkErr(source, err)
}

func quoteKey(symbols []string) string {
	lowered := make([]string, len(symbols))
	for i, s := range symbols {
		lowered[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return "quotes:" + strings.Join(lowered, ",") + ":rt"
}

func seriesKey(symbol string) string {
	return "series:" + symbol + ":daily"
}

func tail(s *Series, bars int) *Series {
	if s == nil || len(s.Bars) <= bars {
		return s
	}
	return &Series{Symbol: s.Symbol, Bars: s.Bars[len(s.Bars)-bars:]}
}
