package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Symbols      []string `yaml:"symbols"`
	Interval     string   `yaml:"interval"`
	LookbackDays int      `yaml:"lookback_days"`
	Workers      int      `yaml:"workers"`
	LogLevel     string   `yaml:"log_level"`

	DataSource struct {
		BaseURL           string  `yaml:"base_url"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"data_source"`

	Channel struct {
		Degree int     `yaml:"degree"`
		KStd   float64 `yaml:"k_std"`
	} `yaml:"channel"`

	// Fees and Slippage are pointers so an explicit 0 in YAML (a fee-free
	// backtest) is distinguishable from the field being absent.
	Backtest struct {
		Fees        *float64 `yaml:"fees"`
		Slippage    *float64 `yaml:"slippage"`
		InitialCash float64  `yaml:"initial_cash"`
		OrderDelay  int      `yaml:"order_delay"`
		Engine      string   `yaml:"engine"`
	} `yaml:"backtest"`

	Optimization struct {
		Enabled bool  `yaml:"enabled"`
		Trials  int   `yaml:"trials"`
		Seed    int64 `yaml:"seed"`
	} `yaml:"optimization"`

	Cache struct {
		Dir           string        `yaml:"dir"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
	} `yaml:"schedule"`

	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	if cfg.Interval == "" {
		cfg.Interval = "1d"
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = 365
	}
	if cfg.Workers == 0 {
		cfg.Workers = 5
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DataSource.BaseURL == "" {
		cfg.DataSource.BaseURL = "https://api.binance.com"
	}
	if cfg.DataSource.RequestsPerSecond == 0 {
		cfg.DataSource.RequestsPerSecond = 5
	}
	if cfg.Channel.Degree == 0 {
		cfg.Channel.Degree = 2
	}
	if cfg.Channel.KStd == 0 {
		cfg.Channel.KStd = 2.0
	}
	if cfg.Backtest.Fees == nil {
		cfg.Backtest.Fees = f64(0.001)
	}
	if cfg.Backtest.Slippage == nil {
		cfg.Backtest.Slippage = f64(0.0005)
	}
	if cfg.Backtest.InitialCash == 0 {
		cfg.Backtest.InitialCash = 100000
	}
	if cfg.Backtest.Engine == "" {
		cfg.Backtest.Engine = "loop"
	}
	if cfg.Optimization.Trials == 0 {
		cfg.Optimization.Trials = 50
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Schedule.ScanCron == "" {
		cfg.Schedule.ScanCron = "0 0 * * * *" // hourly
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Channel.Degree < 1 || c.Channel.Degree > 4 {
		return fmt.Errorf("channel.degree must be in [1, 4]")
	}
	if c.Channel.KStd <= 0 {
		return fmt.Errorf("channel.k_std must be positive")
	}
	if c.Backtest.Fees == nil || *c.Backtest.Fees < 0 || *c.Backtest.Fees > 0.01 {
		return fmt.Errorf("backtest.fees must be in [0, 0.01]")
	}
	if c.Backtest.Slippage == nil || *c.Backtest.Slippage < 0 || *c.Backtest.Slippage > 0.01 {
		return fmt.Errorf("backtest.slippage must be in [0, 0.01]")
	}
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("backtest.initial_cash must be positive")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	return nil
}

func f64(v float64) *float64 { return &v }

func splitSymbols(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
