package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type TencentProvider struct {
	baseURL string
	client  *http.Client
}

func NewTencentProvider(timeout time.Duration) *TencentProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TencentProvider{
		baseURL: "https://qt.gtimg.cn/q=",
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *TencentProvider) Name() string { return "tencent" }

func (p *TencentProvider) FetchQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, emptyErr(p.Name(), fmt.Errorf("symbols is empty"))
	}
	url := p.baseURL + strings.Join(symbols, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkErr(p.Name(), fmt.Errorf("read body: %w", err))
	}
	out := make([]Quote, 0, len(symbols))
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		q, ok := parseTencentLine(line)
		if ok {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, parseErr(p.Name(), fmt.Errorf("no parsable quote lines in %d bytes", len(data)))
	}
	return out, nil
}

func (p *TencentProvider) FetchSeries(_ context.Context, _ string, _ int) (*Series, error) {
	return nil, ErrSeriesUnsupported
}

// parseTencentLine decodes one tilde-positional quote line:
// v_sh600000="1~name~600000~price~preclose~open~volume~...~yyyymmddHHMMSS~...";
// field 1 = name, 3 = price, 4 = prev close, 5 = open, 6 = volume,
// field 30 = quote datetime.
func parseTencentLine(line string) (Quote, bool) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) < 2 {
		return Quote{}, false
	}
	sym := strings.TrimPrefix(strings.TrimSpace(parts[0]), "v_")
	payload := strings.Trim(strings.Trim(parts[1], ";"), "\"")
	fields := strings.Split(payload, "~")
	if len(fields) < 7 {
		return Quote{}, false
	}
	price := parseFloat(fields[3])
	if price <= 0 {
		return Quote{}, false
	}
	prevClose := parseFloat(fields[4])
	open := parseFloat(fields[5])
	volume := parseFloat(fields[6])
	ts := time.Now().Unix()
	if len(fields) > 30 {
		if t, err := time.ParseInLocation("20060102150405", fields[30], cnLoc()); err == nil {
			ts = t.Unix()
		}
	}
	return Quote{
		Symbol:    strings.ToLower(sym),
		Name:      fields[1],
		Price:     price,
		PrevClose: prevClose,
		Open:      open,
		ChangePct: changePct(price, prevClose),
		Volume:    volume,
		TS:        ts,
		Raw:       payload,
	}, true
}

func cnLoc() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.Local
	}
	return loc
}
