package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds the ordered close history for one symbol and interval.
// Bars are sorted by time ascending; after preprocessing there are no
// duplicate timestamps and all closes are finite.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Bars      []OHLCV   `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Closes extracts the close prices in bar order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// LastClose returns the most recent close price, or 0 for an empty series.
func (s *PriceSeries) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}
