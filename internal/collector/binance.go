package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"QuantChannel/internal/model"
)

// maxKlinesPerRequest is the Binance REST limit for one klines call.
const maxKlinesPerRequest = 1000

// BinanceFetcher implements Fetcher against the Binance spot REST API.
// Requests go through a rate limiter (exchange weight limits) and a circuit
// breaker so a flapping exchange fails fast instead of hammering.
type BinanceFetcher struct {
	BaseURL string
	Client  *http.Client

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewBinanceFetcher creates a fetcher with optional proxy support.
// requestsPerSecond bounds the request rate; 0 uses a conservative default.
func NewBinanceFetcher(baseURL, proxyURL string, requestsPerSecond float64) *BinanceFetcher {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BinanceFetcher{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "binance",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchKlines fetches up to limit bars, oldest first. Binance caps one
// request at 1000 bars; larger limits are clamped.
func (f *BinanceFetcher) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]model.OHLCV, error) {
	if limit <= 0 || limit > maxKlinesPerRequest {
		limit = maxKlinesPerRequest
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetchKlinesOnce(ctx, symbol, interval, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.OHLCV), nil
}

func (f *BinanceFetcher) fetchKlinesOnce(ctx context.Context, symbol, interval string, limit int) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		f.BaseURL, url.QueryEscape(symbol), url.QueryEscape(interval), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance: status %d, body: %s", resp.StatusCode, string(body))
	}

	// Each kline is a mixed-type array:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance decode: %w", err)
	}

	bars := make([]model.OHLCV, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   time.UnixMilli(int64(openTime)).UTC(),
			Open:   parsePrice(k[1]),
			High:   parsePrice(k[2]),
			Low:    parsePrice(k[3]),
			Close:  parsePrice(k[4]),
			Volume: parsePrice(k[5]),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("binance %s %s: %w", symbol, interval, ErrNoData)
	}
	return bars, nil
}

// parsePrice handles Binance's string-encoded decimal fields.
func parsePrice(v interface{}) float64 {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return n
	default:
		return 0
	}
}

// BarsPerDay maps an interval label to its daily bar count, used to turn a
// lookback in days into a kline limit. Unknown intervals count as daily.
func BarsPerDay(interval string) int {
	switch interval {
	case "1m":
		return 1440
	case "5m":
		return 288
	case "15m":
		return 96
	case "30m":
		return 48
	case "1h":
		return 24
	case "4h":
		return 6
	case "12h":
		return 2
	default:
		return 1
	}
}
