package backtest

import (
	"math"

	"QuantChannel/internal/model"

	"gonum.org/v1/gonum/stat"
)

// annualization is the trading-day factor applied to the Sharpe ratio.
const annualization = 252

// ComputeStats derives the summary statistics from an equity curve. Any
// non-finite intermediate is coerced to a safe value; the statistics feed
// user-facing signal records and must never carry NaN or Inf.
func ComputeStats(eq []float64, initialCash float64) model.BacktestStats {
	if len(eq) == 0 || initialCash <= 0 {
		return model.BacktestStats{}
	}

	total := (eq[len(eq)-1]/initialCash - 1) * 100
	if !finite(total) {
		total = 0
	}

	returns := make([]float64, len(eq))
	for i := 1; i < len(eq); i++ {
		if eq[i-1] != 0 {
			r := eq[i]/eq[i-1] - 1
			if finite(r) {
				returns[i] = r
			}
		}
	}
	sharpe := 0.0
	if std := stat.StdDev(returns, nil); std > 0 && finite(std) {
		sharpe = stat.Mean(returns, nil) / std * math.Sqrt(annualization)
		if !finite(sharpe) {
			sharpe = 0
		}
	}

	maxDD := 0.0
	runMax := eq[0]
	for _, v := range eq {
		if v > runMax {
			runMax = v
		}
		if runMax > 0 {
			dd := v/runMax - 1
			if finite(dd) && dd < maxDD {
				maxDD = dd
			}
		}
	}

	return model.BacktestStats{
		TotalReturnPercent: total,
		SharpeRatio:        sharpe,
		MaxDrawdownPercent: maxDD * 100,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
