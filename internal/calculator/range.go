package calculator

import (
	"errors"
	"math"
)

// PriceRange scans prices and returns the high and low.
func PriceRange(prices []float64) (high, low float64, err error) {
	if len(prices) == 0 {
		return 0, 0, errors.New("no prices provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, p := range prices {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	return high, low, nil
}

// MaxDrawdownPct returns the largest peak-to-trough decline of values in percent (0..100+).
// A peak at or below zero is ignored since a percentage of it is meaningless.
func MaxDrawdownPct(values []float64) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
