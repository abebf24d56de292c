package market

import (
	"math"
	"strings"
	"testing"
)

func TestParseSinaLine(t *testing.T) {
	line := `var hq_str_sh000001="上证指数,3300.10,3280.00,3310.55,3320.00,3290.00,0,0,281234567,358912345678,0";`
	q, ok := parseSinaLine(line)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if q.Symbol != "sh000001" {
		t.Errorf("symbol = %q", q.Symbol)
	}
	if q.Name != "上证指数" {
		t.Errorf("name = %q", q.Name)
	}
	if q.Open != 3300.10 || q.PrevClose != 3280.00 || q.Price != 3310.55 || q.Volume != 281234567 {
		t.Errorf("fields mismatch: %+v", q)
	}
	want := (3310.55 - 3280.00) / 3280.00 * 100
	if math.Abs(q.ChangePct-want) > 1e-9 {
		t.Errorf("change pct = %v, want %v", q.ChangePct, want)
	}
}

func TestParseSinaLine_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"no assignment", "garbage"},
		{"too few fields", `var hq_str_sh000001="name,1,2,3";`},
		{"zero price", `var hq_str_sh000001="name,1,2,0,4,5,6,7,8,9,10";`},
		{"suspended", `var hq_str_sh000001="name,0.00,0.00,0.00,0,0,0,0,0,0,0";`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseSinaLine(tt.line); ok {
				t.Errorf("expected %q to be rejected", tt.line)
			}
		})
	}
}

func TestParseTencentLine(t *testing.T) {
	fields := make([]string, 32)
	for i := range fields {
		fields[i] = "0"
	}
	fields[1] = "平安银行"
	fields[2] = "000001"
	fields[3] = "11.50"
	fields[4] = "11.00"
	fields[5] = "11.10"
	fields[6] = "123456"
	fields[30] = "20260102150000"
	line := `v_sz000001="` + strings.Join(fields, "~") + `";`

	q, ok := parseTencentLine(line)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if q.Symbol != "sz000001" || q.Name != "平安银行" {
		t.Errorf("identity mismatch: %+v", q)
	}
	if q.Price != 11.50 || q.PrevClose != 11.00 || q.Open != 11.10 || q.Volume != 123456 {
		t.Errorf("fields mismatch: %+v", q)
	}
	// Field 30 is a Beijing-time timestamp and should replace time.Now.
	if q.TS <= 0 {
		t.Errorf("ts = %d", q.TS)
	}
	want := (11.50 - 11.00) / 11.00 * 100
	if math.Abs(q.ChangePct-want) > 1e-9 {
		t.Errorf("change pct = %v, want %v", q.ChangePct, want)
	}
}

func TestParseTencentLine_Rejects(t *testing.T) {
	if _, ok := parseTencentLine(`v_sz000001="1~n~c";`); ok {
		t.Error("expected short line to be rejected")
	}
	if _, ok := parseTencentLine(`v_sz000001="1~n~c~0~11~11~5";`); ok {
		t.Error("expected zero price to be rejected")
	}
}

func TestParseKline(t *testing.T) {
	b, ok := parseKline("2026-01-02,10.0,10.5,10.8,9.9,123456")
	if !ok {
		t.Fatal("expected kline to parse")
	}
	want := Bar{Date: "2026-01-02", Open: 10.0, Close: 10.5, High: 10.8, Low: 9.9, Volume: 123456}
	if b != want {
		t.Errorf("bar = %+v, want %+v", b, want)
	}

	if _, ok := parseKline("2026-01-02,10.0,10.5"); ok {
		t.Error("expected short record to be rejected")
	}
	if _, ok := parseKline("20260102,10.0,10.5,10.8,9.9,1"); ok {
		t.Error("expected compact date to be rejected")
	}
	if _, ok := parseKline("2026-01-02,10.0,0,10.8,9.9,1"); ok {
		t.Error("expected zero close to be rejected")
	}
}

func TestToSecID(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "sh000001", want: "1.000001"},
		{in: "SZ159915", want: "0.159915"},
		{in: " sh510300 ", want: "1.510300"},
		{in: "000001", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := toSecID(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("toSecID(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("toSecID(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("toSecID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChangePct(t *testing.T) {
	if got := changePct(103, 100); math.Abs(got-3) > 1e-9 {
		t.Errorf("changePct(103,100) = %v", got)
	}
	if got := changePct(10, 0); got != 0 {
		t.Errorf("changePct with zero prev close = %v, want 0", got)
	}
}

func TestSeriesValidate(t *testing.T) {
	ok := &Series{Symbol: "sh000001", Bars: []Bar{
		{Date: "2026-01-02", Close: 1},
		{Date: "2026-01-05", Close: 2},
	}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid series rejected: %v", err)
	}

	dup := &Series{Symbol: "sh000001", Bars: []Bar{
		{Date: "2026-01-02", Close: 1},
		{Date: "2026-01-02", Close: 2},
	}}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate dates accepted")
	}

	unordered := &Series{Symbol: "sh000001", Bars: []Bar{
		{Date: "2026-01-05", Close: 1},
		{Date: "2026-01-02", Close: 2},
	}}
	if err := unordered.Validate(); err == nil {
		t.Error("out-of-order dates accepted")
	}

	var empty Series
	if err := empty.Validate(); err == nil {
		t.Error("empty series accepted")
	}
}
