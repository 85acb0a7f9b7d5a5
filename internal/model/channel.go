package model

// RejectReason identifies which fit guard rejected a channel. Every guard
// maps to a distinct reason so callers can handle rejection as data.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectInsufficientData
	RejectExtremeCoefficients
	RejectInvalidRegression
	RejectDegenerateStdDev
	RejectInvalidBands
	RejectExtremeRange
	RejectNoSignals
	RejectExcessiveSignals
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectInsufficientData:
		return "insufficient_data"
	case RejectExtremeCoefficients:
		return "extreme_coefficients"
	case RejectInvalidRegression:
		return "invalid_regression"
	case RejectDegenerateStdDev:
		return "degenerate_stddev"
	case RejectInvalidBands:
		return "invalid_bands"
	case RejectExtremeRange:
		return "extreme_range"
	case RejectNoSignals:
		return "no_signals"
	case RejectExcessiveSignals:
		return "excessive_signals"
	default:
		return "unknown"
	}
}

// Channel is a fitted polynomial regression line with upper/lower bands.
// Invariant: Lower[i] <= Line[i] <= Upper[i] for every index.
type Channel struct {
	Line   []float64
	Upper  []float64
	Lower  []float64
	Degree int
	KStd   float64
}

// FitResult is either an accepted Channel with the derived entry/exit
// signal arrays, or a rejection reason.
type FitResult struct {
	Channel *Channel
	Entries []bool
	Exits   []bool
	Reason  RejectReason
}

// Accepted reports whether the fit passed every guard.
func (r FitResult) Accepted() bool { return r.Reason == RejectNone }
