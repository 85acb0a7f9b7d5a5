package backtest

import (
	"QuantChannel/internal/model"
)

// Engine selects the simulation backend. Both backends are required to
// produce identical equity curves; the trade-list backend only reorganizes
// the computation.
const (
	EngineLoop   = "loop"
	EngineTrades = "trades"
)

// Config controls the equity simulation.
type Config struct {
	Fees        float64 // per-side fee fraction, e.g. 0.001
	Slippage    float64 // per-side slippage fraction
	InitialCash float64
	OrderDelay  int    // bars to delay signal application, 0 = none
	Engine      string // EngineLoop (default) or EngineTrades
}

// DefaultConfig returns the reference simulation settings.
func DefaultConfig() Config {
	return Config{
		Fees:        0.001,
		Slippage:    0.0005,
		InitialCash: 100000,
		OrderDelay:  0,
		Engine:      EngineLoop,
	}
}

// Simulate replays entry/exit signals over the price series as a
// single-asset, single-position backtest and returns the equity curve with
// its derived statistics. The account always ends flat: an open position is
// force-liquidated at the final bar.
func Simulate(prices []float64, entries, exits []bool, cfg Config) ([]float64, model.BacktestStats) {
	if cfg.InitialCash <= 0 {
		cfg.InitialCash = DefaultConfig().InitialCash
	}
	if len(prices) == 0 || len(entries) != len(prices) || len(exits) != len(prices) {
		return nil, model.BacktestStats{}
	}

	entries = shiftSignals(entries, cfg.OrderDelay)
	exits = shiftSignals(exits, cfg.OrderDelay)

	var eq []float64
	if cfg.Engine == EngineTrades {
		eq = simulateTrades(prices, entries, exits, cfg)
	} else {
		eq = simulateLoop(prices, entries, exits, cfg)
	}
	return eq, ComputeStats(eq, cfg.InitialCash)
}

// simulateLoop is the reference sequential state machine: FLAT + entry
// buys with all cash, LONG + exit sells everything.
func simulateLoop(prices []float64, entries, exits []bool, cfg Config) []float64 {
	cash := cfg.InitialCash
	units := 0.0
	long := false
	eq := make([]float64, len(prices))

	for i, p := range prices {
		if !long && entries[i] {
			buyPrice := p * (1 + cfg.Slippage + cfg.Fees)
			if buyPrice > 0 {
				units = cash / buyPrice
				cash = 0
				long = true
			}
		} else if long && exits[i] {
			cash = units * p * (1 - cfg.Slippage - cfg.Fees)
			units = 0
			long = false
		}
		if long {
			eq[i] = cash + units*p
		} else {
			eq[i] = cash
		}
	}

	if long {
		last := len(prices) - 1
		cash = units * prices[last] * (1 - cfg.Slippage - cfg.Fees)
		eq[last] = cash
	}
	return eq
}

// trade is a matched entry/exit pair of bar indices. exitIdx == entryless
// positions never occur; the final open trade exits at the last bar.
type trade struct {
	entryIdx int
	exitIdx  int
}

// simulateTrades first extracts the matched trade list, then renders the
// equity curve segment by segment. Same transitions, same pricing, same
// forced liquidation as the loop backend.
func simulateTrades(prices []float64, entries, exits []bool, cfg Config) []float64 {
	n := len(prices)
	trades := make([]trade, 0)
	long := false
	entryIdx := 0
	for i := 0; i < n; i++ {
		if !long && entries[i] && prices[i] > 0 {
			long = true
			entryIdx = i
		} else if long && exits[i] {
			trades = append(trades, trade{entryIdx: entryIdx, exitIdx: i})
			long = false
		}
	}
	if long {
		trades = append(trades, trade{entryIdx: entryIdx, exitIdx: n - 1})
	}

	eq := make([]float64, n)
	cash := cfg.InitialCash
	pos := 0
	for _, tr := range trades {
		for i := pos; i < tr.entryIdx; i++ {
			eq[i] = cash
		}
		buyPrice := prices[tr.entryIdx] * (1 + cfg.Slippage + cfg.Fees)
		units := 0.0
		if buyPrice > 0 {
			units = cash / buyPrice
			cash = 0
		}
		for i := tr.entryIdx; i < tr.exitIdx; i++ {
			eq[i] = cash + units*prices[i]
		}
		cash += units * prices[tr.exitIdx] * (1 - cfg.Slippage - cfg.Fees)
		eq[tr.exitIdx] = cash
		pos = tr.exitIdx + 1
	}
	for i := pos; i < n; i++ {
		eq[i] = cash
	}
	return eq
}

// shiftSignals moves signals forward by delay bars. The shifted-in leading
// bars are false so a delayed signal can never look ahead.
func shiftSignals(sig []bool, delay int) []bool {
	if delay <= 0 {
		return sig
	}
	out := make([]bool, len(sig))
	for i := delay; i < len(sig); i++ {
		out[i] = sig[i-delay]
	}
	return out
}
