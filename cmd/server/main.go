package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"

	"quant-assistant/internal/analyzer"
	"quant-assistant/internal/api"
	"quant-assistant/internal/cache"
	"quant-assistant/internal/config"
	"quant-assistant/internal/logging"
	"quant-assistant/internal/market"
	"quant-assistant/internal/metrics"
	"quant-assistant/internal/poller"
	"quant-assistant/internal/position"
	"quant-assistant/internal/store"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/app.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	met := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			if err := met.Serve(cfg.Metrics.Addr); err != nil {
				log.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	st, err := store.Open(cfg.Store.SqlitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()

	cacheStore, err := buildCache(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cache init failed")
	}

	timeout := time.Duration(cfg.Market.TimeoutMs) * time.Millisecond
	providers, err := buildProviders(cfg.Market.Providers, timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("provider config invalid")
	}
	mkt, err := market.NewMultiProvider(cacheStore, timeout, log, met, providers...)
	if err != nil {
		log.Fatal().Err(err).Msg("multiprovider init failed")
	}

	an := analyzer.New(mkt, st, analyzer.Config{
		Params:     cfg.Indicator,
		Breakout:   cfg.Breakout,
		Edge:       cfg.Position.Edge,
		Fraction:   position.Fraction(cfg.Position.Fraction),
		SeriesBars: cfg.Market.SeriesBars,
	}, met, log)

	pl := poller.New(mkt, an, st, cfg.Market.Symbols, log)
	if err := pl.Start(cfg.Market.QuoteCron, cfg.Market.AnalyzeCron); err != nil {
		log.Fatal().Err(err).Msg("poller start failed")
	}
	defer pl.Stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))
	api.RegisterRoutes(h, mkt, an, st, cfg.Market.Symbols, log)

	log.Info().Str("addr", addr).Strs("providers", cfg.Market.Providers).Msg("server starting")
	if err := h.Run(); err != nil {
		log.Fatal().Err(err).Msg("server run failed")
	}
}

func buildCache(cfg *config.Config) (cache.Store, error) {
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}, ttl)
	default:
		return cache.NewFileStore(cfg.Cache.Dir, ttl)
	}
}

// buildProviders maps the configured failover order to adapters. Order in the
// slice is the order attempts happen in.
func buildProviders(names []string, timeout time.Duration) ([]market.Provider, error) {
	out := make([]market.Provider, 0, len(names))
	for _, name := range names {
		switch name {
		case "eastmoney":
			out = append(out, market.NewEastmoneyProvider(timeout))
		case "tencent":
			out = append(out, market.NewTencentProvider(timeout))
		case "sina":
			out = append(out, market.NewSinaProvider(timeout))
		default:
			return nil, fmt.Errorf("unknown provider: %q", name)
		}
	}
	return out, nil
}
