package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sweepstat/internal/analyzer"
	"sweepstat/internal/timeframe"
)

// Config represents the application configuration
type Config struct {
	Data      DataConfig       `yaml:"data"`
	Store     StoreConfig      `yaml:"store"`
	Exchanges []ExchangeConfig `yaml:"exchanges"`
	Sync      SyncConfig       `yaml:"sync"`
	Analysis  analyzer.Params  `yaml:"analysis"`
	Server    ServerConfig     `yaml:"server"`
	Log       LogConfig        `yaml:"log"`
}

// DataConfig selects the series analyses run on
type DataConfig struct {
	Source    string        `yaml:"source"` // store or csv
	CSVPath   string        `yaml:"csv_path"`
	Exchange  string        `yaml:"exchange"`
	Symbol    string        `yaml:"symbol"`
	Timeframe string        `yaml:"timeframe"` // base resolution
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// StoreConfig holds candle storage settings
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
}

// ExchangeConfig holds one exchange source
type ExchangeConfig struct {
	Name      string   `yaml:"name"`
	Enabled   bool     `yaml:"enabled"`
	Symbols   []string `yaml:"symbols"`
	BaseURL   string   `yaml:"base_url"`
	RateLimit int      `yaml:"rate_limit"` // requests per second
	PageLimit int      `yaml:"page_limit"` // candles per request
}

// SyncConfig holds ingestion settings
type SyncConfig struct {
	Timeframe    string        `yaml:"timeframe"`
	LookbackDays int           `yaml:"lookback_days"` // first sync only
	SymbolPause  time.Duration `yaml:"symbol_pause"`
	Schedule     string        `yaml:"schedule"` // cron spec with seconds
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Source:    "store",
			Exchange:  "binance",
			Symbol:    "BTC/USDT",
			Timeframe: "15m",
			CacheTTL:  5 * time.Minute,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "sweepstat.db",
		},
		Exchanges: []ExchangeConfig{
			{Name: "binance", Enabled: true, Symbols: []string{"BTC/USDT", "ETH/USDT"}, RateLimit: 2, PageLimit: 1000},
			{Name: "bybit", Enabled: true, Symbols: []string{"BTC/USDT:USDT"}, RateLimit: 2, PageLimit: 1000},
			{Name: "coinbase", Enabled: true, Symbols: []string{"BTC/USD"}, RateLimit: 2, PageLimit: 300},
		},
		Sync: SyncConfig{
			Timeframe:    "15m",
			LookbackDays: 365,
			SymbolPause:  time.Second,
			Schedule:     "0 */15 * * * *",
		},
		Analysis: analyzer.DefaultParams(),
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file means defaults.
// Variables from a .env file in the working directory are loaded first;
// SWEEPSTAT_* environment variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SWEEPSTAT_DB_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SWEEPSTAT_DB_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("SWEEPSTAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SWEEPSTAT_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SWEEPSTAT_HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Exchange returns the named exchange config.
func (c *Config) Exchange(name string) (ExchangeConfig, bool) {
	for _, e := range c.Exchanges {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return ExchangeConfig{}, false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Data.Source {
	case "store":
	case "csv":
		if c.Data.CSVPath == "" {
			return fmt.Errorf("data.csv_path is required for the csv source")
		}
	default:
		return fmt.Errorf("data.source must be store or csv, got %q", c.Data.Source)
	}
	if _, err := timeframe.Parse(c.Data.Timeframe); err != nil {
		return fmt.Errorf("data.timeframe: %w", err)
	}
	if c.Data.CacheTTL < 0 {
		return fmt.Errorf("data.cache_ttl must not be negative")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}

	for _, e := range c.Exchanges {
		switch strings.ToLower(e.Name) {
		case "binance", "bybit", "coinbase":
		default:
			return fmt.Errorf("unknown exchange %q", e.Name)
		}
		if e.Enabled && len(e.Symbols) == 0 {
			return fmt.Errorf("exchange %s has no symbols", e.Name)
		}
		if e.RateLimit < 0 || e.PageLimit < 0 {
			return fmt.Errorf("exchange %s: rate_limit and page_limit must not be negative", e.Name)
		}
	}

	if _, err := timeframe.Parse(c.Sync.Timeframe); err != nil {
		return fmt.Errorf("sync.timeframe: %w", err)
	}
	if c.Sync.LookbackDays < 1 {
		return fmt.Errorf("sync.lookback_days must be at least 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be within 1-65535, got %d", c.Server.Port)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
