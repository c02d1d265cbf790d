package calculator

import (
	"errors"

	"github.com/moznion/go-optional"
)

// RSI computes the Wilder-smoothed RSI for every index of prices.
// The first defined value is at index period. A window with no losses gives
// 100 and a flat window gives NaN; neither is special-cased.
func RSI(prices []float64, period int) ([]optional.Option[float64], error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]optional.Option[float64], len(prices))
	for i := range out {
		out[i] = optional.None[float64]()
	}
	if len(prices) < period+1 {
		return out, nil
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = optional.Some(rsiFrom(avgGain, avgLoss))

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = optional.Some(rsiFrom(avgGain, avgLoss))
	}
	return out, nil
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
