package strategy

import (
	"fmt"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Rule names accepted by New.
const (
	RuleMA        = "ma"
	RuleConfirmed = "confirmed"
)

// New returns the rule registered under name.
func New(name string, overbought float64) (Rule, error) {
	switch name {
	case "", RuleMA:
		return MovingAverageRule{}, nil
	case RuleConfirmed:
		return ConfirmedRule{Overbought: overbought}, nil
	default:
		return nil, fmt.Errorf("unknown strategy rule %q", name)
	}
}

// Evaluate labels every observation. prices and features must be aligned.
func Evaluate(rule Rule, prices []float64, features []model.Features) ([]model.Label, error) {
	if len(prices) != len(features) {
		return nil, fmt.Errorf("prices (%d) and features (%d) are not aligned", len(prices), len(features))
	}
	labels := make([]model.Label, len(prices))
	for i, p := range prices {
		labels[i] = rule.Label(p, features[i])
	}
	return labels, nil
}

// Count tallies labels by kind.
func Count(labels []model.Label) (buys, sells, holds int) {
	for _, l := range labels {
		switch l {
		case model.LabelBuy:
			buys++
		case model.LabelSell:
			sells++
		default:
			holds++
		}
	}
	return buys, sells, holds
}
