package core

import "math"

// Display cutoffs, in percent of the limit. A spend below GreenCutoffPercent
// is green, below OrangeCutoffPercent orange, red otherwise.
const (
	GreenCutoffPercent  = 75
	OrangeCutoffPercent = 100
)

// Threshold is the traffic-light classification of a budget card.
type Threshold string

const (
	ThresholdGreen  Threshold = "green"
	ThresholdOrange Threshold = "orange"
	ThresholdRed    Threshold = "red"
)

// Severity orders thresholds from 0 (green) to 2 (red).
func (t Threshold) Severity() int {
	switch t {
	case ThresholdOrange:
		return 1
	case ThresholdRed:
		return 2
	}
	return 0
}

func hasLimit(limit *Money) bool {
	return limit != nil && limit.Cents > 0
}

// percentOf returns spent/limit*100 without rounding. Callers check hasLimit.
func percentOf(spent Money, limit Money) float64 {
	return float64(spent.Cents) / float64(limit.Cents) * 100
}

// ComputeThreshold classifies spent against limit. Budgets without a limit,
// or with a zero limit, are always green.
func ComputeThreshold(spent Money, limit *Money) Threshold {
	if !hasLimit(limit) {
		return ThresholdGreen
	}
	p := percentOf(spent, *limit)
	switch {
	case p < GreenCutoffPercent:
		return ThresholdGreen
	case p < OrangeCutoffPercent:
		return ThresholdOrange
	default:
		return ThresholdRed
	}
}

// ComputeProgress returns the rounded percentage of the limit consumed. The
// value is not capped so callers can report how far a budget was exceeded.
func ComputeProgress(spent Money, limit *Money) int {
	if !hasLimit(limit) {
		return 0
	}
	return int(math.Round(percentOf(spent, *limit)))
}

// ComputeRemaining returns limit - spent clamped to zero, or nil without a
// limit.
func ComputeRemaining(spent Money, limit *Money) *Money {
	if limit == nil {
		return nil
	}
	r := limit.Sub(spent).NonNegative()
	return &r
}
