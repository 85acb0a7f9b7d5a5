package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"QuantChannel/internal/model"
)

// FileCache persists one JSON file per symbol+interval under a directory.
type FileCache struct {
	Dir string
	TTL time.Duration
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{Dir: dir, TTL: ttl}, nil
}

func (c *FileCache) path(symbol, interval string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(symbol)
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s.json", name, interval))
}

// Get reads the cached series; a missing, unreadable, or expired file is a
// plain miss, never an error.
func (c *FileCache) Get(_ context.Context, symbol, interval string) (*model.PriceSeries, bool) {
	data, err := os.ReadFile(c.path(symbol, interval))
	if err != nil {
		return nil, false
	}
	var series model.PriceSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, false
	}
	if c.TTL > 0 && time.Since(series.FetchedAt) > c.TTL {
		return nil, false
	}
	return &series, true
}

// Put writes the series to its cache file.
func (c *FileCache) Put(_ context.Context, series *model.PriceSeries) error {
	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal series: %w", err)
	}
	return os.WriteFile(c.path(series.Symbol, series.Interval), data, 0644)
}

func (c *FileCache) Close() error { return nil }
