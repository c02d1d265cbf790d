package calculator

import (
	"errors"

	"github.com/moznion/go-optional"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMA returns the trailing simple moving average for every index of prices.
// Indices below window-1 are None. Each window is summed from scratch so a
// flat series yields a mean exactly equal to its price.
func SMA(prices []float64, window int) ([]optional.Option[float64], error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	out := make([]optional.Option[float64], len(prices))
	for i := range prices {
		if i < window-1 {
			out[i] = optional.None[float64]()
			continue
		}
		ma, err := CalculateSMA(prices[:i+1], window)
		if err != nil {
			return nil, err
		}
		out[i] = optional.Some(ma)
	}
	return out, nil
}
