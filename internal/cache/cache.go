package cache

import (
	"context"

	"QuantChannel/internal/model"
)

// Cache stores fetched price series so repeated scans don't re-hit the
// exchange. Implementations decide freshness: Get returns false when the
// entry is missing or stale.
type Cache interface {
	Get(ctx context.Context, symbol, interval string) (*model.PriceSeries, bool)
	Put(ctx context.Context, series *model.PriceSeries) error
	Close() error
}

// Noop is used when caching is disabled; every lookup is a miss.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Get(_ context.Context, _, _ string) (*model.PriceSeries, bool) { return nil, false }
func (n *Noop) Put(_ context.Context, _ *model.PriceSeries) error             { return nil }
func (n *Noop) Close() error                                                  { return nil }
