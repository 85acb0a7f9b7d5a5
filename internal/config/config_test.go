package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Interval != "1d" {
		t.Errorf("expected default interval 1d, got %s", cfg.Interval)
	}
	if cfg.Workers != 5 {
		t.Errorf("expected default 5 workers, got %d", cfg.Workers)
	}
	if cfg.Channel.Degree != 2 || cfg.Channel.KStd != 2.0 {
		t.Errorf("unexpected channel defaults: %+v", cfg.Channel)
	}
	if *cfg.Backtest.Fees != 0.001 || *cfg.Backtest.Slippage != 0.0005 {
		t.Errorf("unexpected backtest defaults: fees=%v slippage=%v", *cfg.Backtest.Fees, *cfg.Backtest.Slippage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
symbols: [btcusdt, solusdt]
interval: 4h
workers: 8
channel:
  degree: 3
  k_std: 1.5
optimization:
  enabled: true
  trials: 30
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SYMBOLS", "ethusdt, adausdt")
	t.Setenv("SCAN_WORKERS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "ETHUSDT" || cfg.Symbols[1] != "ADAUSDT" {
		t.Errorf("env symbols override failed: %v", cfg.Symbols)
	}
	if cfg.Workers != 3 {
		t.Errorf("env workers override failed: %d", cfg.Workers)
	}
	if cfg.Interval != "4h" || cfg.Channel.Degree != 3 {
		t.Errorf("yaml values lost: interval=%s degree=%d", cfg.Interval, cfg.Channel.Degree)
	}
	if !cfg.Optimization.Enabled || cfg.Optimization.Trials != 30 {
		t.Errorf("optimization config lost: %+v", cfg.Optimization)
	}
}

func TestLoad_ExplicitZeroFeesPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backtest:
  fees: 0
  slippage: 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Backtest.Fees != 0 || *cfg.Backtest.Slippage != 0 {
		t.Errorf("explicit zeros overwritten: fees=%v slippage=%v", *cfg.Backtest.Fees, *cfg.Backtest.Slippage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("fee-free config should validate: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no symbols", func(c *Config) { c.Symbols = nil }},
		{"degree too high", func(c *Config) { c.Channel.Degree = 5 }},
		{"negative fees", func(c *Config) { c.Backtest.Fees = f64(-0.1) }},
		{"fees above cap", func(c *Config) { c.Backtest.Fees = f64(0.5) }},
		{"unset fees", func(c *Config) { c.Backtest.Fees = nil }},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t"; c.Telegram.ChatID = "" }},
	}
	for _, tt := range tests {
		cfg := &Config{}
		applyDefaults(cfg)
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}
