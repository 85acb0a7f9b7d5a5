package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"QuantChannel/internal/cache"
	"QuantChannel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars []model.OHLCV
	Err  error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchKlines(_ context.Context, _, _ string, limit int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	bars := m.Bars
	if len(bars) > limit && limit > 0 {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// GenerateBars builds a synthetic bar series around a base price, useful
// for mocks and tests.
func GenerateBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	start := time.Now().UTC().AddDate(0, 0, -count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector resolves price history through the cache, falling back to the
// exchange fetcher on a miss.
type Collector struct {
	Fetcher      Fetcher
	Cache        cache.Cache
	Interval     string
	LookbackDays int
}

// NewCollector creates a Collector. A nil cache disables caching.
func NewCollector(fetcher Fetcher, c cache.Cache, interval string, lookbackDays int) *Collector {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Collector{
		Fetcher:      fetcher,
		Cache:        c,
		Interval:     interval,
		LookbackDays: lookbackDays,
	}
}

// History returns the price series for a symbol, from cache when fresh.
func (c *Collector) History(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	if series, ok := c.Cache.Get(ctx, symbol, c.Interval); ok {
		log.Debug().Str("symbol", symbol).Str("interval", c.Interval).Msg("cache hit")
		return series, nil
	}

	limit := c.LookbackDays * BarsPerDay(c.Interval)
	bars, err := c.Fetcher.FetchKlines(ctx, symbol, c.Interval, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", symbol, c.Interval, err)
	}
	series := &model.PriceSeries{
		Symbol:    symbol,
		Interval:  c.Interval,
		Bars:      bars,
		FetchedAt: time.Now().UTC(),
	}
	if err := c.Cache.Put(ctx, series); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("cache put failed")
	}
	return series, nil
}
