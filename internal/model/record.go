package model

import "time"

// BacktestStats summarizes a simulated equity curve.
type BacktestStats struct {
	TotalReturnPercent float64 `json:"total_return_percent"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
}

// AnalysisRecord is the per-symbol output of one analysis run. Records are
// immutable once created; the next run replaces them wholesale.
type AnalysisRecord struct {
	RunID                  string        `json:"run_id"`
	Symbol                 string        `json:"symbol"`
	Interval               string        `json:"interval"`
	CurrentPrice           float64       `json:"current_price"`
	Signal                 Signal        `json:"signal"`
	PotentialReturnPercent float64       `json:"potential_return_percent"`
	LowerBand              float64       `json:"lower_band"`
	UpperBand              float64       `json:"upper_band"`
	Stats                  BacktestStats `json:"stats"`
	Degree                 int           `json:"degree"`
	KStd                   float64       `json:"k_std"`
	Lookback               int           `json:"lookback"`
	AnalyzedAt             time.Time     `json:"analyzed_at"`
}
