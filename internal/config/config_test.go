package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("does-not-exist.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Data.CacheTTL != 5*time.Minute || cfg.Sync.LookbackDays != 365 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	yml := `
data:
  source: csv
  csv_path: btc.csv
  cache_ttl: 30s
analysis:
  wick_min_pct: 2.5
  sessions: [Asia, London]
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SWEEPSTAT_HTTP_PORT", "9100")
	t.Setenv("SWEEPSTAT_DB_DSN", "postgres://localhost/ohlcv")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data.Source != "csv" || cfg.Data.CacheTTL != 30*time.Second {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Analysis.WickMinPct != 2.5 || len(cfg.Analysis.Sessions) != 2 || cfg.Analysis.OTFRun != 3 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Server.Port != 9100 || cfg.Store.DSN != "postgres://localhost/ohlcv" {
		t.Errorf("env overrides not applied: port %d dsn %q", cfg.Server.Port, cfg.Store.DSN)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SWEEPSTAT_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Registered so the variable set by godotenv is restored afterwards.
	t.Setenv("SWEEPSTAT_LOG_LEVEL", "")
	os.Unsetenv("SWEEPSTAT_LOG_LEVEL")

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_BadPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SWEEPSTAT_HTTP_PORT", "http")
	if _, err := Load("none.yaml"); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"csv without path", func(c *Config) { c.Data.Source = "csv" }},
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }},
		{"bad timeframe", func(c *Config) { c.Data.Timeframe = "7m" }},
		{"bad driver", func(c *Config) { c.Store.Driver = "mysql" }},
		{"unknown exchange", func(c *Config) { c.Exchanges[0].Name = "kraken" }},
		{"no symbols", func(c *Config) { c.Exchanges[1].Symbols = nil }},
		{"no lookback", func(c *Config) { c.Sync.LookbackDays = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExchange(t *testing.T) {
	cfg := DefaultConfig()
	e, ok := cfg.Exchange("Coinbase")
	if !ok || e.PageLimit != 300 {
		t.Errorf("got %+v, %v", e, ok)
	}
	if _, ok := cfg.Exchange("kraken"); ok {
		t.Error("expected no kraken config")
	}
}
