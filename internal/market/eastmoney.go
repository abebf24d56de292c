package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type EastmoneyProvider struct {
	quoteURL string
	klineURL string
	client   *http.Client
}

type eastmoneyResp struct {
	Data *eastmoneyData `json:"data"`
}

type eastmoneyData struct {
	Name      string  `json:"f58"`
	Code      string  `json:"f57"`
	Price     float64 `json:"f43"`
	PrevClose float64 `json:"f60"`
	Open      float64 `json:"f46"`
	Volume    float64 `json:"f47"`
}

type eastmoneyKlineResp struct {
	Data *eastmoneyKlineData `json:"data"`
}

type eastmoneyKlineData struct {
	Code   string   `json:"code"`
	Klines []string `json:"klines"`
}

func NewEastmoneyProvider(timeout time.Duration) *EastmoneyProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EastmoneyProvider{
		quoteURL: "https://push2.eastmoney.com/api/qt/stock/get",
		klineURL: "https://push2his.eastmoney.com/api/qt/stock/kline/get",
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *EastmoneyProvider) Name() string { return "eastmoney" }

func (p *EastmoneyProvider) FetchQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, emptyErr(p.Name(), fmt.Errorf("symbols is empty"))
	}
	out := make([]Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, err := p.getOne(ctx, sym)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (p *EastmoneyProvider) getOne(ctx context.Context, symbol string) (Quote, error) {
	secid, err := toSecID(symbol)
	if err != nil {
		return Quote{}, parseErr(p.Name(), err)
	}

	u, err := url.Parse(p.quoteURL)
	if err != nil {
		return Quote{}, networkErr(p.Name(), fmt.Errorf("invalid base url: %w", err))
	}
	q := u.Query()
	q.Set("secid", secid)
	q.Set("fields", "f57,f58,f43,f46,f47,f60")
	q.Set("ut", "fa5fd1943c7b386f172d6893dbfba10b")
	q.Set("fltt", "2")
	q.Set("invt", "2")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Quote{}, networkErr(p.Name(), fmt.Errorf("build request: %w", err))
	}

	var payload eastmoneyResp
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := p.client.Do(req)
		if err != nil {
			if shouldRetry(err) && attempt < 2 {
				lastErr = err
				time.Sleep(150 * time.Millisecond)
				continue
			}
			return Quote{}, networkErr(p.Name(), err)
		}
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			if shouldRetry(err) && attempt < 2 {
				lastErr = err
				time.Sleep(150 * time.Millisecond)
				continue
			}
			return Quote{}, parseErr(p.Name(), fmt.Errorf("decode quote: %w", err))
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return Quote{}, networkErr(p.Name(), lastErr)
	}
	if payload.Data == nil {
		return Quote{}, emptyErr(p.Name(), fmt.Errorf("empty response data for %s", symbol))
	}
	if payload.Data.Price <= 0 {
		return Quote{}, parseErr(p.Name(), fmt.Errorf("invalid price for %s", symbol))
	}

	rawBytes, _ := json.Marshal(payload.Data)
	return Quote{
		Symbol:    strings.ToLower(symbol),
		Name:      payload.Data.Name,
		Price:     payload.Data.Price,
		PrevClose: payload.Data.PrevClose,
		Open:      payload.Data.Open,
		ChangePct: changePct(payload.Data.Price, payload.Data.PrevClose),
		Volume:    payload.Data.Volume,
		TS:        time.Now().Unix(),
		Raw:       string(rawBytes),
	}, nil
}

func (p *EastmoneyProvider) FetchSeries(ctx context.Context, symbol string, bars int) (*Series, error) {
	secid, err := toSecID(symbol)
	if err != nil {
		return nil, parseErr(p.Name(), err)
	}
	if bars <= 0 {
		bars = 120
	}

	u, err := url.Parse(p.klineURL)
	if err != nil {
		return nil, networkErr(p.Name(), fmt.Errorf("invalid kline url: %w", err))
	}
	q := u.Query()
	q.Set("secid", secid)
	q.Set("fields1", "f1,f2,f3")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")
	q.Set("klt", "101") // daily
	q.Set("fqt", "1")   // forward adjusted
	q.Set("lmt", fmt.Sprintf("%d", bars))
	q.Set("end", "20500101")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, networkErr(p.Name(), fmt.Errorf("build request: %w", err))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, networkErr(p.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, networkErr(p.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload eastmoneyKlineResp
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, parseErr(p.Name(), fmt.Errorf("decode kline: %w", err))
	}
	if payload.Data == nil || len(payload.Data.Klines) == 0 {
		return nil, emptyErr(p.Name(), fmt.Errorf("no klines for %s", symbol))
	}

	series := &Series{Symbol: strings.ToLower(symbol), Bars: make([]Bar, 0, len(payload.Data.Klines))}
	for _, line := range payload.Data.Klines {
		b, ok := parseKline(line)
		if ok {
			series.Bars = append(series.Bars, b)
		}
	}
	if len(series.Bars) == 0 {
		return nil, parseErr(p.Name(), fmt.Errorf("no parsable klines for %s", symbol))
	}
	if err := series.Validate(); err != nil {
		return nil, parseErr(p.Name(), err)
	}
	return series, nil
}

// parseKline decodes one "date,open,close,high,low,volume" record.
func parseKline(line string) (Bar, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return Bar{}, false
	}
	b := Bar{
		Date:   fields[0],
		Open:   parseFloat(fields[1]),
		Close:  parseFloat(fields[2]),
		High:   parseFloat(fields[3]),
		Low:    parseFloat(fields[4]),
		Volume: parseFloat(fields[5]),
	}
	if b.Close <= 0 || len(b.Date) != 10 {
		return Bar{}, false
	}
	return b, true
}

func toSecID(symbol string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if strings.HasPrefix(s, "sh") {
		return "1." + strings.TrimPrefix(s, "sh"), nil
	}
	if strings.HasPrefix(s, "sz") {
		return "0." + strings.TrimPrefix(s, "sz"), nil
	}
	return "", fmt.Errorf("invalid symbol: %s", symbol)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "reset by peer") {
		return true
	}
	return false
}
