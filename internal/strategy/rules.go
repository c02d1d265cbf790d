package strategy

import (
	"math"

	"github.com/moznion/go-optional"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// DefaultOverbought is the RSI level above which the confirmed rule sells.
const DefaultOverbought = 70.0

// Rule assigns a label to one observation from its price and features.
type Rule interface {
	Name() string
	Label(price float64, f model.Features) model.Label
}

// MovingAverageRule compares the price to its moving average.
// BUY above, SELL below, HOLD on equality or while the average is undefined.
type MovingAverageRule struct{}

func (MovingAverageRule) Name() string { return RuleMA }

func (MovingAverageRule) Label(price float64, f model.Features) model.Label {
	ma, ok := value(f.MA)
	if !ok {
		return model.LabelHold
	}
	switch {
	case price > ma:
		return model.LabelBuy
	case price < ma:
		return model.LabelSell
	default:
		return model.LabelHold
	}
}

// ConfirmedRule requires MACD and RSI to agree with the moving-average test
// before buying, while either bearish indicator alone is enough to sell.
//
//	BUY:  price > MA and MACD > signal and RSI < overbought
//	SELL: MACD < signal or RSI > overbought
//
// SELL is tested after BUY and wins when both match. Any undefined input is HOLD.
type ConfirmedRule struct {
	Overbought float64
}

func (ConfirmedRule) Name() string { return RuleConfirmed }

func (r ConfirmedRule) Label(price float64, f model.Features) model.Label {
	ma, okMA := value(f.MA)
	rsi, okRSI := value(f.RSI)
	macd, okMACD := value(f.MACD)
	signal, okSignal := value(f.SignalLine)
	if !okMA || !okRSI || !okMACD || !okSignal {
		return model.LabelHold
	}
	overbought := r.Overbought
	if overbought == 0 {
		overbought = DefaultOverbought
	}

	label := model.LabelHold
	if price > ma && macd > signal && rsi < overbought {
		label = model.LabelBuy
	}
	if macd < signal || rsi > overbought {
		label = model.LabelSell
	}
	return label
}

// value unwraps o, treating NaN the same as undefined.
func value(o optional.Option[float64]) (float64, bool) {
	if o.IsNone() {
		return 0, false
	}
	v := o.Unwrap()
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
