package model

// Signal is the trading decision derived from the last price against the
// last channel bands.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)
