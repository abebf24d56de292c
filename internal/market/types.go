package market

import (
	"context"
	"fmt"
)

type Quote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close,omitempty"`
	Open      float64 `json:"open,omitempty"`
	ChangePct float64 `json:"change_pct,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
	TS        int64   `json:"ts"`
	Raw       string  `json:"raw,omitempty"`
}

// Bar is one daily OHLCV record. Date is formatted 2006-01-02.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Validate checks ordering: dates strictly increasing, no duplicates.
func (s *Series) Validate() error {
	if s == nil || len(s.Bars) == 0 {
		return fmt.Errorf("series: no bars")
	}
	for i := 1; i < len(s.Bars); i++ {
		if s.Bars[i].Date <= s.Bars[i-1].Date {
			return fmt.Errorf("series %s: bars out of order at %q", s.Symbol, s.Bars[i].Date)
		}
	}
	return nil
}

func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// changePct recomputes the percent change from the two raw prices. Provider
// change fields are never trusted without this cross-check.
func changePct(price, prevClose float64) float64 {
	if prevClose <= 0 {
		return 0
	}
	return (price - prevClose) / prevClose * 100
}

// Provider is one external data source. Implementations perform the network
// call and normalize the wire format; they never touch the cache.
type Provider interface {
	Name() string
	FetchQuotes(ctx context.Context, symbols []string) ([]Quote, error)
	// FetchSeries returns up to the last `bars` daily bars. Providers without
	// a kline endpoint return ErrSeriesUnsupported.
	FetchSeries(ctx context.Context, symbol string, bars int) (*Series, error)
}
