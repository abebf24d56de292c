package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "file" || cfg.Cache.TTLSec != 300 {
		t.Errorf("cache defaults: %+v", cfg.Cache)
	}
	wantProviders := []string{"eastmoney", "tencent", "sina"}
	if len(cfg.Market.Providers) != len(wantProviders) {
		t.Fatalf("providers = %v", cfg.Market.Providers)
	}
	for i, p := range wantProviders {
		if cfg.Market.Providers[i] != p {
			t.Errorf("providers[%d] = %q, want %q", i, cfg.Market.Providers[i], p)
		}
	}
	if cfg.Indicator.MACDFast != 12 || cfg.Indicator.MACDSlow != 26 || cfg.Indicator.MACDSignal != 9 {
		t.Errorf("macd defaults: %+v", cfg.Indicator)
	}
	if cfg.Position.Fraction != "quarter" {
		t.Errorf("fraction = %q", cfg.Position.Fraction)
	}
	if cfg.Position.Edge.WinRate != 0.6 || cfg.Position.Edge.AvgWin != 0.06 || cfg.Position.Edge.AvgLoss != 0.04 {
		t.Errorf("edge defaults: %+v", cfg.Position.Edge)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	body := []byte(`
server:
  port: 9000
market:
  providers: [sina]
  symbols: [sh600000]
position:
  fraction: half
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if len(cfg.Market.Providers) != 1 || cfg.Market.Providers[0] != "sina" {
		t.Errorf("providers = %v", cfg.Market.Providers)
	}
	if cfg.Position.Fraction != "half" {
		t.Errorf("fraction = %q", cfg.Position.Fraction)
	}
	// Untouched sections keep their defaults.
	if cfg.Cache.TTLSec != 300 {
		t.Errorf("ttl = %d, want default", cfg.Cache.TTLSec)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  port: 99999999\n"},
		{"bad provider", "market:\n  providers: [bloomberg]\n"},
		{"bad cache backend", "cache:\n  backend: memcached\n"},
		{"bad fraction", "position:\n  fraction: double\n"},
		{"bad log format", "log:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "app.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("SQLITE_PATH", "/tmp/other.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override", cfg.Server.Port)
	}
	if cfg.Store.SqlitePath != "/tmp/other.db" {
		t.Errorf("sqlite path = %q, want env override", cfg.Store.SqlitePath)
	}
}

func TestLoad_RejectsBadEnvPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for unparsable PORT")
	}
}
