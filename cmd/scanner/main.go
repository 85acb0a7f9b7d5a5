package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"QuantChannel/internal/cache"
	"QuantChannel/internal/collector"
	"QuantChannel/internal/config"
	"QuantChannel/internal/notifier"
	"QuantChannel/internal/scanner"
	"QuantChannel/internal/scheduler"
	"QuantChannel/internal/store"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "scanner",
		Short: "Polynomial regression channel scanner",
		Long:  "Fits polynomial regression channels over crypto price history, classifies breakout signals, and backtests them.",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to YAML config")

	root.AddCommand(scanCmd(), watchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one batch scan across all configured symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			summary, err := app.scanner.Run(ctx)
			if err != nil {
				return err
			}
			if summary.Failed > 0 && summary.Succeeded == 0 {
				return fmt.Errorf("all %d symbols failed", summary.Failed)
			}
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run batch scans on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sched := scheduler.NewScheduler(ctx, app.scanner, app.notifier)
			if err := sched.Register(app.cfg.Schedule.ScanCron); err != nil {
				return err
			}
			sched.Start()
			if runOnStart {
				go sched.RunNow()
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			log.Info().Msg("shutting down")
			cancel()
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run one scan immediately before waiting for the schedule")
	return cmd
}

// app holds the wired dependency graph for one command invocation.
type app struct {
	cfg      *config.Config
	scanner  *scanner.Scanner
	notifier scanner.Notifier
	closers  []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close dependency failed")
		}
	}
}

func buildApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	setupLogging(cfg.LogLevel)

	a := &app{cfg: cfg}

	fetcher := collector.NewBinanceFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.DataSource.RequestsPerSecond)
	log.Info().Str("source", fetcher.Name()).Str("base_url", cfg.DataSource.BaseURL).Msg("data source ready")

	seriesCache := buildCache(cfg)
	a.closers = append(a.closers, seriesCache.Close)

	col := collector.NewCollector(fetcher, seriesCache, cfg.Interval, cfg.LookbackDays)

	var st store.Store
	if cfg.Database.SQLitePath != "" {
		ss, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite store unavailable, persistence disabled")
			st = store.NewNoop()
		} else {
			st = ss
			a.closers = append(a.closers, ss.Close)
		}
	} else {
		st = store.NewNoop()
	}

	if cfg.Telegram.BotToken != "" {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	a.scanner = scanner.New(col, st, a.notifier, cfg)
	return a, nil
}

// buildCache prefers redis, falls back to a file cache when a directory is
// configured, and otherwise disables caching. A dead redis is not fatal.
func buildCache(cfg *config.Config) cache.Cache {
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, falling back")
		} else {
			log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("redis cache ready")
			return rc
		}
	}
	if cfg.Cache.Dir != "" {
		fc, err := cache.NewFileCache(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.Cache.Dir).Msg("file cache unavailable, caching disabled")
			return cache.NewNoop()
		}
		return fc
	}
	return cache.NewNoop()
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
