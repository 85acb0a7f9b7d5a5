package series

import (
	"math"

	"QuantChannel/internal/model"

	"gonum.org/v1/gonum/stat"
)

const (
	// SmoothWindow is the centered rolling-mean window applied after cleaning.
	SmoothWindow = 5

	// outlierZScore is the |z| threshold beyond which a close is rejected.
	outlierZScore = 3.0

	// maxOutlierPasses bounds the outlier-rejection loop. Rejection repeats
	// until no sample exceeds the threshold so that cleaning is a fixed point.
	maxOutlierPasses = 10
)

// Clean removes duplicate timestamps (keeping the first occurrence),
// fills non-finite or non-positive closes forward then backward, and
// replaces |z| > 3 outliers with filled values. Cleaning an already clean
// series returns it unchanged.
func Clean(bars []model.OHLCV) []model.OHLCV {
	if len(bars) < 2 {
		return bars
	}

	out := dedupeByTime(bars)
	closes := make([]float64, len(out))
	for i, b := range out {
		closes[i] = b.Close
	}
	fill(closes)

	for pass := 0; pass < maxOutlierPasses; pass++ {
		if !rejectOutliers(closes) {
			break
		}
		fill(closes)
	}

	for i := range out {
		out[i].Close = closes[i]
	}
	return out
}

// Smooth applies a centered rolling mean with the given window. Partial
// windows at the edges average whatever is in range, so the output has the
// same length as the input.
func Smooth(closes []float64, window int) []float64 {
	if window <= 1 || len(closes) == 0 {
		out := make([]float64, len(closes))
		copy(out, closes)
		return out
	}
	half := window / 2
	out := make([]float64, len(closes))
	for i := range closes {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(closes)-1 {
			hi = len(closes) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += closes[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// Preprocess cleans the bars and smooths the close column. Series with
// fewer than 2 points are returned unchanged; the fitter rejects them.
func Preprocess(bars []model.OHLCV) []model.OHLCV {
	if len(bars) < 2 {
		return bars
	}
	out := Clean(bars)
	smoothed := Smooth(closesOf(out), SmoothWindow)
	for i := range out {
		out[i].Close = smoothed[i]
	}
	return out
}

func closesOf(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func dedupeByTime(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for i, b := range bars {
		if i > 0 && b.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// fill replaces non-finite or non-positive closes by carrying the previous
// valid value forward, then the next valid value backward for any leading
// gap. A series with no valid value at all is left as-is.
func fill(closes []float64) {
	last := math.NaN()
	for i, v := range closes {
		if isValid(v) {
			last = v
		} else if isValid(last) {
			closes[i] = last
		}
	}
	next := math.NaN()
	for i := len(closes) - 1; i >= 0; i-- {
		if isValid(closes[i]) {
			next = closes[i]
		} else if isValid(next) {
			closes[i] = next
		}
	}
}

// rejectOutliers marks closes beyond the z-score threshold as NaN and
// reports whether anything was rejected.
func rejectOutliers(closes []float64) bool {
	mean := stat.Mean(closes, nil)
	std := stat.StdDev(closes, nil)
	if !isValid(std) || std == 0 {
		return false
	}
	rejected := false
	for i, v := range closes {
		if math.Abs(v-mean)/std > outlierZScore {
			closes[i] = math.NaN()
			rejected = true
		}
	}
	return rejected
}

func isValid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
