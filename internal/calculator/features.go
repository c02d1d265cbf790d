package calculator

import (
	"fmt"

	"github.com/moznion/go-optional"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Params configures the indicator windows.
type Params struct {
	MAWindow   int
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams returns MA5, RSI(14) and MACD(12,26,9).
func DefaultParams() Params {
	return Params{MAWindow: 5, RSIPeriod: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9}
}

// Compute derives the per-observation features for prices.
func Compute(prices []float64, p Params) ([]model.Features, error) {
	ma, err := SMA(prices, p.MAWindow)
	if err != nil {
		return nil, fmt.Errorf("moving average: %w", err)
	}
	rsi, err := RSI(prices, p.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	macd, signal, err := MACD(prices, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}

	features := make([]model.Features, len(prices))
	for i := range prices {
		features[i] = model.Features{
			MA:         ma[i],
			RSI:        rsi[i],
			MACD:       optional.Some(macd[i]),
			SignalLine: optional.Some(signal[i]),
		}
	}
	return features, nil
}
