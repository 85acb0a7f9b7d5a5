package channel

import (
	"fmt"
	"math"

	"QuantChannel/internal/model"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Guard thresholds for the channel fit. The signal-density limits are
// literal contract values carried over from the reference behavior.
const (
	MinFitPoints = 50

	MinDegree = 1
	MaxDegree = 4

	maxCoefficient     = 1e6
	maxRegressionValue = 1e8
	maxBandValue       = 1e6
	maxStdDevFraction  = 0.5
	maxPriceRangeRatio = 100.0

	bandFloorMultiplier = 0.2
	bandCeilMultiplier  = 1.5
	bandSeparation      = 0.95

	maxSignalDensityBoth   = 0.80
	maxSignalDensitySingle = 0.60
)

// Fit least-squares fits a polynomial regression channel to the close
// series. The result is either an accepted Channel with the derived
// entry/exit arrays, or a typed rejection. Fitting is deterministic: the
// same inputs always produce the same result.
func Fit(closes []float64, degree int, kStd float64) model.FitResult {
	if degree < MinDegree {
		degree = MinDegree
	}
	if degree > MaxDegree {
		degree = MaxDegree
	}
	minPoints := MinFitPoints
	if degree+1 > minPoints {
		minPoints = degree + 1
	}
	if len(closes) < minPoints {
		return model.FitResult{Reason: model.RejectInsufficientData}
	}

	coeffs, err := polyfit(closes, degree)
	if err != nil || extremeCoefficient(coeffs) {
		// One retry at a reduced degree before giving up; an extreme
		// coefficient is the signature of an ill-conditioned fit.
		reduced := degree
		if reduced > 2 {
			reduced = 2
		}
		coeffs, err = polyfit(closes, reduced)
		if err != nil || extremeCoefficient(coeffs) {
			return model.FitResult{Reason: model.RejectExtremeCoefficients}
		}
		degree = reduced
	}

	n := len(closes)
	line := make([]float64, n)
	for i := range line {
		line[i] = polyval(coeffs, float64(i))
	}
	for _, v := range line {
		if !finite(v) || v <= 0 || v > maxRegressionValue {
			return model.FitResult{Reason: model.RejectInvalidRegression}
		}
	}

	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = closes[i] - line[i]
	}
	std := stat.StdDev(residuals, nil)
	if !finite(std) || std == 0 || std > maxStdDevFraction*stat.Mean(closes, nil) {
		return model.FitResult{Reason: model.RejectDegenerateStdDev}
	}

	lastPrice := closes[n-1]
	floor := bandFloorMultiplier * lastPrice
	ceil := bandCeilMultiplier * lastPrice

	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := range line {
		upper[i] = clamp(line[i]+kStd*std, floor, ceil)
		lower[i] = clamp(line[i]-kStd*std, floor, ceil)
		if lower[i] > bandSeparation*upper[i] {
			lower[i] = bandSeparation * upper[i]
		}
		// Clamping can pull a band across the line; keep the ordering
		// invariant lower <= line <= upper on every accepted channel.
		line[i] = clamp(line[i], lower[i], upper[i])
	}
	for i := range upper {
		if upper[i] <= 0 || lower[i] <= 0 || lower[i] > upper[i] ||
			upper[i] > maxBandValue || lower[i] > maxBandValue {
			return model.FitResult{Reason: model.RejectInvalidBands}
		}
	}

	lo, hi := closes[0], closes[0]
	for _, v := range closes {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo <= 0 || hi/lo > maxPriceRangeRatio {
		return model.FitResult{Reason: model.RejectExtremeRange}
	}

	entries := make([]bool, n)
	exits := make([]bool, n)
	nEntries, nExits := 0, 0
	for i := range closes {
		if closes[i] < lower[i] {
			entries[i] = true
			nEntries++
		}
		if closes[i] > upper[i] {
			exits[i] = true
			nExits++
		}
	}
	if reason := checkSignalDensity(nEntries, nExits, n); reason != model.RejectNone {
		return model.FitResult{Reason: reason}
	}

	return model.FitResult{
		Channel: &model.Channel{
			Line:   line,
			Upper:  upper,
			Lower:  lower,
			Degree: degree,
			KStd:   kStd,
		},
		Entries: entries,
		Exits:   exits,
	}
}

// checkSignalDensity rejects channels that would over-trade: signals on
// more than 80% of bars when both sides fire, 60% when only one does.
func checkSignalDensity(nEntries, nExits, n int) model.RejectReason {
	if nEntries == 0 && nExits == 0 {
		return model.RejectNoSignals
	}
	limit := maxSignalDensitySingle
	if nEntries > 0 && nExits > 0 {
		limit = maxSignalDensityBoth
	}
	if float64(nEntries) > limit*float64(n) || float64(nExits) > limit*float64(n) {
		return model.RejectExcessiveSignals
	}
	return model.RejectNone
}

// polyfit solves the least-squares polynomial fit of y over x = 0..N-1
// via QR decomposition of the Vandermonde matrix. Coefficients are
// returned in ascending-power order.
func polyfit(y []float64, degree int) ([]float64, error) {
	n := len(y)
	if n < degree+1 {
		return nil, fmt.Errorf("polyfit: %d points for degree %d", n, degree)
	}
	a := mat.NewDense(n, degree+1, nil)
	for i := 0; i < n; i++ {
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= float64(i)
		}
	}
	b := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(a)
	coeffs := mat.NewVecDense(degree+1, nil)
	if err := qr.SolveVecTo(coeffs, false, b); err != nil {
		return nil, fmt.Errorf("polyfit: solve: %w", err)
	}

	out := make([]float64, degree+1)
	for i := range out {
		out[i] = coeffs.AtVec(i)
	}
	return out, nil
}

func polyval(coeffs []float64, x float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*x + coeffs[i]
	}
	return v
}

func extremeCoefficient(coeffs []float64) bool {
	for _, c := range coeffs {
		if !finite(c) || math.Abs(c) > maxCoefficient {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
