// Package poller schedules the recurring fetch and analysis jobs.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"quant-assistant/internal/analyzer"
	"quant-assistant/internal/market"
	"quant-assistant/internal/store"
)

type Poller struct {
	provider *market.MultiProvider
	analyzer *analyzer.Analyzer
	store    *store.Store
	symbols  []string
	log      zerolog.Logger
	cron     *cron.Cron

	mu                  sync.Mutex
	consecutiveFailures int
	skipUntil           time.Time
}

func New(provider *market.MultiProvider, an *analyzer.Analyzer, st *store.Store, symbols []string, log zerolog.Logger) *Poller {
	return &Poller{
		provider: provider,
		analyzer: an,
		store:    st,
		symbols:  symbols,
		log:      log,
		cron:     cron.New(),
	}
}

// Start registers the cron jobs and launches the scheduler.
func (p *Poller) Start(quoteSpec, analyzeSpec string) error {
	if quoteSpec != "" {
		if _, err := p.cron.AddFunc(quoteSpec, p.pollQuotes); err != nil {
			return err
		}
	}
	if analyzeSpec != "" {
		if _, err := p.cron.AddFunc(analyzeSpec, p.analyzeAll); err != nil {
			return err
		}
	}
	p.cron.Start()
	return nil
}

func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// pollQuotes fetches live quotes and persists a snapshot per symbol. After
// repeated failures the next runs are skipped for a while, so a dead upstream
// is not hammered on every tick.
func (p *Poller) pollQuotes() {
	p.mu.Lock()
	if time.Now().Before(p.skipUntil) {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := p.provider.GetQuotes(ctx, p.symbols, market.Options{})
	if err != nil {
		p.backoff(err)
		return
	}
	p.resetBackoff()

	for _, q := range res.Quotes {
		rec := store.QuoteRecord{
			TS:        q.TS,
			Symbol:    q.Symbol,
			Name:      q.Name,
			Price:     q.Price,
			PrevClose: q.PrevClose,
			ChangePct: q.ChangePct,
			Volume:    q.Volume,
			Source:    res.Source,
		}
		if err := p.store.InsertQuote(rec); err != nil {
			p.log.Warn().Str("symbol", q.Symbol).Err(err).Msg("persist quote failed")
		}
	}
	p.log.Debug().Int("quotes", len(res.Quotes)).Str("source", res.Source).Bool("cached", res.Cached).Msg("quote poll done")
}

// analyzeAll recomputes signals for every configured symbol, typically once
// after the daily close.
func (p *Poller) analyzeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, sym := range p.symbols {
		report, err := p.analyzer.Analyze(ctx, sym, market.Options{})
		if err != nil {
			p.log.Warn().Str("symbol", sym).Err(err).Msg("scheduled analysis failed")
			continue
		}
		p.log.Info().
			Str("symbol", report.Symbol).
			Str("action", report.Advice.Action).
			Float64("leverage", report.Advice.Leverage).
			Int("signals", len(report.Signals)).
			Msg("scheduled analysis done")
	}
}

func (p *Poller) backoff(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveFailures++
	var pause time.Duration
	switch {
	case p.consecutiveFailures >= 6:
		pause = 4 * time.Minute
	case p.consecutiveFailures >= 3:
		pause = time.Minute
	}
	if pause > 0 {
		p.skipUntil = time.Now().Add(pause)
	}
	p.log.Warn().Err(err).Int("failures", p.consecutiveFailures).Dur("pause", pause).Msg("quote poll failed")
}

func (p *Poller) resetBackoff() {
	p.mu.Lock()
	p.consecutiveFailures = 0
	p.skipUntil = time.Time{}
	p.mu.Unlock()
}
