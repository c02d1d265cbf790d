package calculator

import "errors"

// EMA returns the exponential moving average with alpha = 2/(period+1),
// seeded with the first price. Every index is defined.
func EMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out, nil
	}
	alpha := 2.0 / float64(period+1)
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]*alpha + out[i-1]*(1-alpha)
	}
	return out, nil
}

// MACD returns the MACD line (fast EMA minus slow EMA) and its signal line.
func MACD(prices []float64, fast, slow, signal int) (macd, signalLine []float64, err error) {
	if fast >= slow {
		return nil, nil, errors.New("fast period must be shorter than slow period")
	}
	fastEMA, err := EMA(prices, fast)
	if err != nil {
		return nil, nil, err
	}
	slowEMA, err := EMA(prices, slow)
	if err != nil {
		return nil, nil, err
	}
	macd = make([]float64, len(prices))
	for i := range prices {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine, err = EMA(macd, signal)
	if err != nil {
		return nil, nil, err
	}
	return macd, signalLine, nil
}
