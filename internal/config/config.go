package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"quant-assistant/internal/indicator"
	"quant-assistant/internal/position"
	"quant-assistant/internal/signal"
)

type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Log       LogConfig             `yaml:"log"`
	Metrics   MetricsConfig         `yaml:"metrics"`
	Store     StoreConfig           `yaml:"store"`
	Cache     CacheConfig           `yaml:"cache"`
	Market    MarketConfig          `yaml:"market"`
	Indicator indicator.Params      `yaml:"indicator"`
	Breakout  signal.BreakoutConfig `yaml:"breakout"`
	Position  PositionConfig        `yaml:"position"`
}

type ServerConfig struct {
	Port int `yaml:"port" default:"8080" validate:"min=1,max=65535"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Addr    string `yaml:"addr" default:":9091"`
}

type StoreConfig struct {
	SqlitePath string `yaml:"sqlite_path" default:"data/app.db"`
}

type CacheConfig struct {
	Backend string           `yaml:"backend" default:"file" validate:"oneof=file redis"`
	Dir     string           `yaml:"dir" default:"data/cache"`
	TTLSec  int              `yaml:"ttl_sec" default:"300" validate:"min=1"`
	Redis   RedisCacheConfig `yaml:"redis"`
}

type RedisCacheConfig struct {
	Addr     string `yaml:"addr" default:"127.0.0.1:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MarketConfig struct {
	Symbols []string `yaml:"symbols" default:"[\"sh000001\",\"sh510300\",\"sz159915\"]" validate:"min=1"`
	// Providers is the failover order; the first entry is tried first.
	Providers   []string `yaml:"providers" default:"[\"eastmoney\",\"tencent\",\"sina\"]" validate:"min=1,dive,oneof=eastmoney tencent sina"`
	TimeoutMs   int      `yaml:"timeout_ms" default:"5000" validate:"min=100"`
	SeriesBars  int      `yaml:"series_bars" default:"120" validate:"min=40"`
	QuoteCron   string   `yaml:"quote_cron" default:"@every 30s"`
	AnalyzeCron string   `yaml:"analyze_cron" default:"40 15 * * 1-5"`
}

type PositionConfig struct {
	Fraction string             `yaml:"fraction" default:"quarter" validate:"oneof=full half quarter"`
	Edge     position.EdgeStats `yaml:"edge"`
}

// Load reads the YAML file at path, fills defaults, applies env overrides and
// validates the result. A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Store.SqlitePath = v
	}
	return nil
}
