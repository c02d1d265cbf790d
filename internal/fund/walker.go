package fund

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Walker names accepted by NewWalker.
const (
	WalkerPortfolio = "portfolio"
	WalkerExposure  = "exposure"
)

// DefaultMaxRisk caps a single purchase at 20% of the cash on hand.
const DefaultMaxRisk = 0.2

// places bounds the scale of every stored amount; unrounded products would
// gain digits on each step.
const places = 12

// Step is the account state after processing one observation.
type Step struct {
	Cash   decimal.Decimal
	Units  decimal.Decimal
	Value  decimal.Decimal
	Traded bool
}

// Walker folds labels and fractions over a price series into running balances.
// The first step always equals the initial balance.
type Walker interface {
	Name() string
	Walk(initial decimal.Decimal, prices []float64, labels []model.Label, fractions []float64) ([]Step, error)
}

// NewWalker returns the walker registered under name.
func NewWalker(name string, maxRisk float64) (Walker, error) {
	switch name {
	case "", WalkerPortfolio:
		return PortfolioWalker{MaxRisk: maxRisk}, nil
	case WalkerExposure:
		return ExposureWalker{}, nil
	default:
		return nil, fmt.Errorf("unknown walker %q", name)
	}
}

func checkInputs(initial decimal.Decimal, prices []float64, labels []model.Label, fractions []float64) error {
	if initial.IsNegative() {
		return errors.New("initial balance must not be negative")
	}
	if len(prices) != len(labels) || len(prices) != len(fractions) {
		return fmt.Errorf("inputs are not aligned: %d prices, %d labels, %d fractions",
			len(prices), len(labels), len(fractions))
	}
	return nil
}

// PortfolioWalker holds cash and units. A BUY converts
// min(cash*fraction, cash*MaxRisk) into units at the current price; a SELL
// liquidates every unit. Value is cash + units*price, so the value only moves
// by units(i-1) * (price(i) - price(i-1)).
type PortfolioWalker struct {
	MaxRisk float64
}

func (PortfolioWalker) Name() string { return WalkerPortfolio }

func (w PortfolioWalker) Walk(initial decimal.Decimal, prices []float64, labels []model.Label, fractions []float64) ([]Step, error) {
	if err := checkInputs(initial, prices, labels, fractions); err != nil {
		return nil, err
	}
	maxRisk := w.MaxRisk
	if maxRisk <= 0 {
		maxRisk = DefaultMaxRisk
	}
	riskCap := decimal.NewFromFloat(maxRisk)

	cash := initial
	units := decimal.Zero
	steps := make([]Step, len(prices))
	for i, p := range prices {
		price := decimal.NewFromFloat(p)
		traded := false

		if p > 0 {
			switch labels[i] {
			case model.LabelBuy:
				if cash.IsPositive() && fractions[i] > 0 {
					invest := decimal.Min(cash.Mul(decimal.NewFromFloat(fractions[i])), cash.Mul(riskCap))
					units = units.Add(invest.Div(price)).Round(places)
					cash = cash.Sub(invest).Round(places)
					traded = true
				}
			case model.LabelSell:
				if units.IsPositive() {
					cash = cash.Add(units.Mul(price)).Round(places)
					units = decimal.Zero
					traded = true
				}
			}
		}

		steps[i] = Step{
			Cash:   cash,
			Units:  units,
			Value:  cash.Add(units.Mul(price)).Round(places),
			Traded: traded,
		}
	}
	return steps, nil
}

// ExposureWalker applies the signed, fraction-scaled return of each step to
// the balance: balance += dir * fraction * balance * (price-prev)/prev.
// It is unbounded and can go negative on large swings.
type ExposureWalker struct{}

func (ExposureWalker) Name() string { return WalkerExposure }

func (ExposureWalker) Walk(initial decimal.Decimal, prices []float64, labels []model.Label, fractions []float64) ([]Step, error) {
	if err := checkInputs(initial, prices, labels, fractions); err != nil {
		return nil, err
	}
	balance := initial
	steps := make([]Step, len(prices))
	for i, p := range prices {
		traded := false
		if i > 0 && prices[i-1] > 0 && p > 0 {
			dir := direction(labels[i])
			if dir != 0 && fractions[i] != 0 {
				prev := decimal.NewFromFloat(prices[i-1])
				change := decimal.NewFromFloat(p).Sub(prev).Div(prev)
				balance = balance.Add(decimal.NewFromInt(dir).
					Mul(decimal.NewFromFloat(fractions[i])).
					Mul(balance).
					Mul(change)).
					Round(places)
				traded = true
			}
		}
		steps[i] = Step{Cash: balance, Units: decimal.Zero, Value: balance, Traded: traded}
	}
	return steps, nil
}

func direction(l model.Label) int64 {
	switch l {
	case model.LabelBuy:
		return 1
	case model.LabelSell:
		return -1
	default:
		return 0
	}
}

// ProfitPct is the percentage change from initial to value. Zero initial gives 0.
func ProfitPct(value, initial decimal.Decimal) float64 {
	if initial.IsZero() {
		return 0
	}
	return value.Sub(initial).Div(initial).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
