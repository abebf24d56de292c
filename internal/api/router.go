package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog"

	"quant-assistant/internal/analyzer"
	"quant-assistant/internal/market"
	"quant-assistant/internal/position"
	"quant-assistant/internal/store"
)

type SimulateRequest struct {
	WinRate  float64 `json:"win_rate"`
	AvgWin   float64 `json:"avg_win"`
	AvgLoss  float64 `json:"avg_loss"`
	Fraction float64 `json:"fraction"`
	Trials   int     `json:"trials"`
	Rounds   int     `json:"rounds"`
	Seed     int64   `json:"seed"`
}

func RegisterRoutes(h *server.Hertz, mkt *market.MultiProvider, an *analyzer.Analyzer, st *store.Store, defaultSymbols []string, log zerolog.Logger) {
	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.GET("/api/v1/quotes", func(ctx context.Context, c *app.RequestContext) {
		symbols := parseSymbols(string(c.Query("symbols")), defaultSymbols)
		opts := market.Options{AllowStale: string(c.Query("stale")) == "1"}
		res, err := mkt.GetQuotes(ctx, symbols, opts)
		if err != nil {
			writeFetchError(c, err, log)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	h.GET("/api/v1/series/:symbol", func(ctx context.Context, c *app.RequestContext) {
		symbol := c.Param("symbol")
		bars, err := parsePositive(string(c.Query("bars")), 120)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid bars"})
			return
		}
		opts := market.Options{AllowStale: string(c.Query("stale")) == "1"}
		res, err := mkt.GetSeries(ctx, symbol, bars, opts)
		if err != nil {
			writeFetchError(c, err, log)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	h.GET("/api/v1/analysis/:symbol", func(ctx context.Context, c *app.RequestContext) {
		symbol := c.Param("symbol")
		opts := market.Options{AllowStale: string(c.Query("stale")) == "1"}
		report, err := an.Analyze(ctx, symbol, opts)
		if err != nil {
			writeFetchError(c, err, log)
			return
		}
		c.JSON(http.StatusOK, report)
	})

	h.GET("/api/v1/signals", func(_ context.Context, c *app.RequestContext) {
		date := string(c.Query("date"))
		if date == "" {
			date = chinaToday()
		}
		limit, err := parsePositive(string(c.Query("limit")), 200)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid limit"})
			return
		}
		offset, err := parseOffset(string(c.Query("offset")))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid offset"})
			return
		}
		records, err := st.QuerySignalsByDate(date, strings.ToLower(string(c.Query("symbol"))), string(c.Query("type")), limit, offset)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true, "date": date, "signals": records})
	})

	h.GET("/api/v1/quotes/history", func(_ context.Context, c *app.RequestContext) {
		symbol := strings.ToLower(string(c.Query("symbol")))
		if symbol == "" {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "symbol is required"})
			return
		}
		limit, err := parsePositive(string(c.Query("limit")), 200)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid limit"})
			return
		}
		offset, err := parseOffset(string(c.Query("offset")))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid offset"})
			return
		}
		records, err := st.QueryQuotes(symbol, limit, offset)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true, "symbol": symbol, "quotes": records})
	})

	h.POST("/api/v1/position/simulate", func(_ context.Context, c *app.RequestContext) {
		var req SimulateRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json body"})
			return
		}
		edge := position.EdgeStats{WinRate: req.WinRate, AvgWin: req.AvgWin, AvgLoss: req.AvgLoss}
		if req.Fraction <= 0 {
			req.Fraction = position.Kelly(edge.WinRate, edge.AvgWin, edge.AvgLoss)
		}
		seed := req.Seed
		if seed == 0 {
			seed = 1
		}
		res := position.Simulate(edge, req.Fraction, req.Trials, req.Rounds, seed)
		c.JSON(http.StatusOK, map[string]any{
			"ok":       true,
			"fraction": req.Fraction,
			"kelly":    position.Kelly(edge.WinRate, edge.AvgWin, edge.AvgLoss),
			"result":   res,
		})
	})
}

// writeFetchError maps provider failures to 502 with the per-source causes,
// so a consumer sees why there is no data instead of a silent default.
func writeFetchError(c *app.RequestContext, err error, log zerolog.Logger) {
	var allFailed *market.AllFailedError
	if errors.As(err, &allFailed) {
		causes := make([]string, 0, len(allFailed.Attempts))
		for _, a := range allFailed.Attempts {
			causes = append(causes, a.Error())
		}
		log.Warn().Strs("causes", causes).Msg("all market sources failed")
		c.JSON(http.StatusBadGateway, map[string]any{"ok": false, "error": "no data available", "causes": causes})
		return
	}
	c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
}

func chinaToday() string {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.Local
	}
	return time.Now().In(loc).Format("2006-01-02")
}

func parseSymbols(raw string, defaults []string) []string {
	if strings.TrimSpace(raw) == "" {
		return defaults
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaults
	}
	return out
}

func parsePositive(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return v, nil
}

func parseOffset(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return v, nil
}
