package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"QuantChannel/internal/collector"
	"QuantChannel/internal/config"
	"QuantChannel/internal/model"
	"QuantChannel/internal/notifier"
	"QuantChannel/internal/store"
)

// Notifier is the alert surface the scanner needs; satisfied by
// notifier.TelegramNotifier.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Summary reports the outcome of one batch run. Failures map symbol to the
// reason its pipeline failed; one symbol's failure never aborts the batch.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Failures  map[string]string
	Elapsed   time.Duration
}

// Scanner runs the per-symbol analysis pipeline across a batch of symbols.
// All collaborators are passed in explicitly; there is no shared mutable
// state between symbol pipelines.
type Scanner struct {
	Collector *collector.Collector
	Store     store.Store
	Notifier  Notifier
	Cfg       *config.Config
}

// New creates a Scanner. A nil store disables persistence; a nil notifier
// disables alerts.
func New(col *collector.Collector, st store.Store, n Notifier, cfg *config.Config) *Scanner {
	if st == nil {
		st = store.NewNoop()
	}
	return &Scanner{Collector: col, Store: st, Notifier: n, Cfg: cfg}
}

type symbolResult struct {
	symbol string
	record *model.AnalysisRecord
	err    error
}

// Run analyzes every configured symbol under a bounded worker pool and
// returns the batch summary.
func (s *Scanner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runID := uuid.New().String()
	symbols := s.Cfg.Symbols

	log.Info().
		Str("run_id", runID).
		Int("symbols", len(symbols)).
		Int("workers", s.Cfg.Workers).
		Str("interval", s.Cfg.Interval).
		Bool("optimize", s.Cfg.Optimization.Enabled).
		Msg("starting batch scan")

	jobs := make(chan string)
	results := make(chan symbolResult)

	var wg sync.WaitGroup
	workers := s.Cfg.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				rec, err := s.analyzeSymbol(ctx, runID, symbol)
				results <- symbolResult{symbol: symbol, record: rec, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, symbol := range symbols {
			select {
			case jobs <- symbol:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{RunID: runID, Failures: make(map[string]string)}
	for res := range results {
		if res.err != nil {
			summary.Failed++
			summary.Failures[res.symbol] = res.err.Error()
			log.Warn().Str("symbol", res.symbol).Err(res.err).Msg("symbol analysis failed")
			continue
		}
		summary.Succeeded++
		s.persistAndAlert(ctx, res.record)
	}
	summary.Elapsed = time.Since(start)

	log.Info().
		Str("run_id", runID).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("batch scan complete")

	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (s *Scanner) persistAndAlert(ctx context.Context, rec *model.AnalysisRecord) {
	if err := s.Store.Save(rec); err != nil {
		log.Error().Str("symbol", rec.Symbol).Err(err).Msg("persist record failed")
	}
	if s.Notifier == nil || rec.Signal == model.SignalHold {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, notifier.FormatSignalAlert(rec), 2); err != nil {
		log.Error().Str("symbol", rec.Symbol).Err(err).Msg("signal alert failed")
	}
}
