package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type SinaProvider struct {
	baseURL string
	client  *http.Client
}

func NewSinaProvider(timeout time.Duration) *SinaProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SinaProvider{
		baseURL: "https://hq.sinajs.cn/list=",
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *SinaProvider) Name() string { return "sina" }

func (p *SinaProvider) FetchQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, emptyErr(p.Name(), fmt.Errorf("symbols is empty"))
	}
	url := p.baseURL + strings.Join(symbols, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, networkErr(p.Name(), fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Referer", "https://finance.sina.com.cn")
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
		q, ok := parseSinaLine(line)
		if ok {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		// HTTP 200 with a body we could not use is a parse problem, not success.
		return nil, parseErr(p.Name(), fmt.Errorf("no parsable quote lines in %d bytes", len(data)))
	}
	return out, nil
}

func (p *SinaProvider) FetchSeries(_ context.Context, _ string, _ int) (*Series, error) {
	return nil, ErrSeriesUnsupported
}

// parseSinaLine decodes one comma-positional quote line:
// var hq_str_sh000001="name,open,preclose,price,high,low,...,volume,amount,...";
func parseSinaLine(line string) (Quote, bool) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) < 2 {
		return Quote{}, false
	}
	sym := strings.TrimPrefix(strings.TrimSpace(parts[0]), "var hq_str_")
	payload := strings.Trim(strings.Trim(parts[1], ";"), "\"")
	fields := strings.Split(payload, ",")
	if len(fields) < 10 {
		return Quote{}, false
	}
	price := parseFloat(fields[3])
	if price <= 0 {
		return Quote{}, false
	}
	open := parseFloat(fields[1])
	prevClose := parseFloat(fields[2])
	volume := parseFloat(fields[8])
	return Quote{
		Symbol:    strings.ToLower(sym),
		Name:      fields[0],
		Price:     price,
		PrevClose: prevClose,
		Open:      open,
		ChangePct: changePct(price, prevClose),
		Volume:    volume,
		TS:        time.Now().Unix(),
		Raw:       payload,
	}, true
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
