package scanner

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"QuantChannel/internal/cache"
	"QuantChannel/internal/collector"
	"QuantChannel/internal/config"
	"QuantChannel/internal/model"
	"QuantChannel/internal/optimize"
	"QuantChannel/internal/store"
)

// channelBars builds a bar series whose closes oscillate around a trend
// with occasional multi-bar excursions. The excursions span three bars so
// they survive the preprocessing smooth and still cross the channel bands.
func channelBars(n int) []model.OHLCV {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		v := 100 + float64(i)*0.3 + 2*math.Sin(float64(i)/4)
		switch {
		case i%50 >= 10 && i%50 <= 12:
			v -= 12
		case i%83 >= 30 && i%83 <= 32:
			v += 12
		}
		bars[i] = model.OHLCV{Time: base.AddDate(0, 0, i), Close: v, Volume: 1}
	}
	return bars
}

type memStore struct {
	mu      sync.Mutex
	records []*model.AnalysisRecord
}

func (m *memStore) Save(rec *model.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}
func (m *memStore) Close() error { return nil }

func testConfig(symbols ...string) *config.Config {
	cfg, _ := config.Load("/nonexistent/config.yaml")
	cfg.Symbols = symbols
	cfg.Workers = 2
	return cfg
}

func newTestScanner(fetcher collector.Fetcher, st store.Store, cfg *config.Config) *Scanner {
	col := collector.NewCollector(fetcher, cache.NewNoop(), cfg.Interval, cfg.LookbackDays)
	return New(col, st, nil, cfg)
}

func TestRun_AnalyzesAndPersists(t *testing.T) {
	st := &memStore{}
	fetcher := &collector.MockFetcher{Bars: channelBars(250)}
	s := newTestScanner(fetcher, st, testConfig("BTCUSDT", "ETHUSDT"))

	sum, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Succeeded != 2 || sum.Failed != 0 {
		t.Fatalf("expected 2 successes, got %+v", sum)
	}
	if len(st.records) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(st.records))
	}
	rec := st.records[0]
	if rec.RunID != sum.RunID {
		t.Errorf("record run id mismatch: %s vs %s", rec.RunID, sum.RunID)
	}
	if rec.LowerBand <= 0 || rec.UpperBand < rec.LowerBand {
		t.Errorf("invalid bands in record: %+v", rec)
	}
	if rec.Signal != model.SignalBuy && rec.Signal != model.SignalSell && rec.Signal != model.SignalHold {
		t.Errorf("unexpected signal %q", rec.Signal)
	}
	if math.Abs(rec.PotentialReturnPercent) > 1000 {
		t.Errorf("potential return out of bounds: %.2f", rec.PotentialReturnPercent)
	}
}

func TestRun_FailedSymbolDoesNotAbortBatch(t *testing.T) {
	st := &memStore{}
	// A fetcher error fails every symbol that uses it; mix in a healthy one
	// by keying off the symbol inside a wrapper.
	fetcher := &symbolSwitchFetcher{
		good: &collector.MockFetcher{Bars: channelBars(250)},
		bad:  &collector.MockFetcher{Err: errors.New("rate limited")},
		fail: map[string]bool{"BADUSDT": true},
	}
	s := newTestScanner(fetcher, st, testConfig("BTCUSDT", "BADUSDT", "ETHUSDT"))

	sum, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("expected 2 ok / 1 failed, got %+v", sum)
	}
	if _, ok := sum.Failures["BADUSDT"]; !ok {
		t.Errorf("expected BADUSDT in failures: %v", sum.Failures)
	}
	if len(st.records) != 2 {
		t.Errorf("expected 2 persisted records, got %d", len(st.records))
	}
}

func TestRun_InsufficientDataFailsGracefully(t *testing.T) {
	st := &memStore{}
	fetcher := &collector.MockFetcher{Bars: channelBars(10)}
	s := newTestScanner(fetcher, st, testConfig("BTCUSDT"))

	sum, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Failed != 1 || len(st.records) != 0 {
		t.Fatalf("expected graceful failure without record, got %+v", sum)
	}
}

func TestFitWithFallback_ConstantSeriesFails(t *testing.T) {
	s := newTestScanner(&collector.MockFetcher{}, &memStore{}, testConfig("X"))
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100
	}
	_, _, err := s.fitWithFallback("X", closes, optimize.Params{Degree: 3, KStd: 2.0})
	if err == nil {
		t.Fatal("expected all fit attempts to fail on a constant series")
	}
}

func TestRun_OptimizationPath(t *testing.T) {
	st := &memStore{}
	cfg := testConfig("BTCUSDT")
	cfg.Optimization.Enabled = true
	cfg.Optimization.Trials = 20
	cfg.Optimization.Seed = 11
	s := newTestScanner(&collector.MockFetcher{Bars: channelBars(300)}, st, cfg)

	sum, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Succeeded != 1 {
		t.Fatalf("expected success with optimization, got %+v", sum)
	}
	rec := st.records[0]
	if rec.Degree < 1 || rec.Degree > 4 {
		t.Errorf("chosen degree out of range: %d", rec.Degree)
	}
}

type symbolSwitchFetcher struct {
	good collector.Fetcher
	bad  collector.Fetcher
	fail map[string]bool
}

func (f *symbolSwitchFetcher) Name() string { return "switch" }

func (f *symbolSwitchFetcher) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]model.OHLCV, error) {
	if f.fail[symbol] {
		return f.bad.FetchKlines(ctx, symbol, interval, limit)
	}
	return f.good.FetchKlines(ctx, symbol, interval, limit)
}
