package model

import "github.com/moznion/go-optional"

// Label is the trade label assigned to one observation.
type Label string

const (
	LabelBuy  Label = "BUY"
	LabelSell Label = "SELL"
	LabelHold Label = "HOLD"
)

// Valid reports whether l is one of BUY, SELL or HOLD.
func (l Label) Valid() bool {
	switch l {
	case LabelBuy, LabelSell, LabelHold:
		return true
	default:
		return false
	}
}

func (l Label) String() string { return string(l) }

// Features holds the indicator values derived for one observation.
// A value is None while its rolling window is still warming up.
type Features struct {
	MA         optional.Option[float64]
	RSI        optional.Option[float64]
	MACD       optional.Option[float64]
	SignalLine optional.Option[float64]
}

// Histogram returns MACD minus its signal line when both are defined.
func (f Features) Histogram() optional.Option[float64] {
	if f.MACD.IsNone() || f.SignalLine.IsNone() {
		return optional.None[float64]()
	}
	return optional.Some(f.MACD.Unwrap() - f.SignalLine.Unwrap())
}
