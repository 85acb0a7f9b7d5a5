package optimize

import (
	"math"
	"math/rand"

	"QuantChannel/internal/backtest"
	"QuantChannel/internal/channel"
)

// Params is a candidate point in the (degree, kStd, lookback) search space.
// Lookback 0 means the full series; any other value truncates the series to
// its most recent points before fitting.
type Params struct {
	Degree   int     `json:"degree"`
	KStd     float64 `json:"k_std"`
	Lookback int     `json:"lookback"`
}

// DefaultParams are the conservative fallback used when every trial in a
// search is rejected.
func DefaultParams() Params {
	return Params{Degree: 1, KStd: 1.5, Lookback: 0}
}

// Config controls the random search.
type Config struct {
	Trials   int
	Seed     int64
	Backtest backtest.Config
}

// Result reports the best parameters found and how hard they were to find.
type Result struct {
	Best          Params
	BestObjective float64
	Evaluations   int
	Rejected      int
	Exhausted     bool // every trial rejected, Best holds the defaults
}

const (
	minKStd     = 1.0
	maxKStd     = 3.0
	kStdStep    = 0.1
	minLookback = 50

	// rejected is the penalty objective assigned to an unusable trial.
	rejected = math.MaxFloat64
)

// Search minimizes the backtest objective over seeded random trials. The
// objective is -totalReturn for profitable channels (maximize gain) and
// |totalReturn| for losing ones (minimize loss magnitude); trials whose fit
// is rejected, whose slice is too short or invalid, or whose return is
// non-finite or beyond ±1000% are penalized out of contention.
func Search(closes []float64, cfg Config) Result {
	if cfg.Trials <= 0 {
		cfg.Trials = 50
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	res := Result{
		Best:          DefaultParams(),
		BestObjective: rejected,
	}
	for i := 0; i < cfg.Trials; i++ {
		p := samplePoint(rng, len(closes))
		obj := Objective(closes, p, cfg.Backtest)
		res.Evaluations++
		if obj == rejected {
			res.Rejected++
			continue
		}
		if obj < res.BestObjective {
			res.BestObjective = obj
			res.Best = p
		}
	}
	res.Exhausted = res.Rejected == res.Evaluations
	return res
}

// Objective scores one parameter set; lower is better. Unusable trials
// return the rejection penalty.
func Objective(closes []float64, p Params, btCfg backtest.Config) float64 {
	slice := applyLookback(closes, p.Lookback)
	if len(slice) < minLookback {
		return rejected
	}
	for _, v := range slice {
		if math.IsNaN(v) || v <= 0 {
			return rejected
		}
	}

	fit := channel.Fit(slice, p.Degree, p.KStd)
	if !fit.Accepted() {
		return rejected
	}
	_, stats := backtest.Simulate(slice, fit.Entries, fit.Exits, btCfg)

	total := stats.TotalReturnPercent
	if math.IsNaN(total) || math.IsInf(total, 0) || math.Abs(total) > 1000 {
		return rejected
	}
	if total > 0 {
		return -total
	}
	return math.Abs(total)
}

func samplePoint(rng *rand.Rand, seriesLen int) Params {
	p := Params{
		Degree: channel.MinDegree + rng.Intn(channel.MaxDegree-channel.MinDegree+1),
		KStd:   roundToStep(minKStd+rng.Float64()*(maxKStd-minKStd), kStdStep),
	}
	// One trial in four keeps the full history; the rest truncate.
	if seriesLen > minLookback && rng.Intn(4) != 0 {
		p.Lookback = minLookback + rng.Intn(seriesLen-minLookback+1)
	}
	return p
}

func applyLookback(closes []float64, lookback int) []float64 {
	if lookback <= 0 || lookback >= len(closes) {
		return closes
	}
	return closes[len(closes)-lookback:]
}

func roundToStep(v, step float64) float64 {
	return math.Round(v/step) * step
}
