package collector

import (
	"context"
	"errors"

	"QuantChannel/internal/model"
)

// ErrNoData marks a response that contained no usable bars for the
// requested symbol and interval.
var ErrNoData = errors.New("no kline data")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchKlines returns up to limit bars for the symbol and interval,
	// oldest first.
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]model.OHLCV, error)
	Name() string
}
