package fund

import (
	"fmt"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Sizer names accepted by NewSizer.
const (
	SizerStrength = "strength"
	SizerFixed    = "fixed"
)

// Sizer decides which fraction of the available balance a signal commits.
type Sizer interface {
	Name() string
	Fraction(price float64, f model.Features) float64
}

// StrengthSizer sizes by how far the price sits above its moving average.
type StrengthSizer struct {
	MaxFraction     float64
	MinFraction     float64
	StrongThreshold float64
}

// DefaultStrengthSizer returns 50% above a 2% margin, 10% for any positive margin.
func DefaultStrengthSizer() StrengthSizer {
	return StrengthSizer{MaxFraction: 0.5, MinFraction: 0.1, StrongThreshold: 0.02}
}

func (StrengthSizer) Name() string { return SizerStrength }

func (s StrengthSizer) Fraction(price float64, f model.Features) float64 {
	strength := Strength(price, f)
	switch {
	case strength > s.StrongThreshold:
		return s.MaxFraction
	case strength > 0:
		return s.MinFraction
	default:
		return 0
	}
}

// Strength is (price-MA)/MA, or 0 while MA is undefined or zero.
func Strength(price float64, f model.Features) float64 {
	if f.MA.IsNone() {
		return 0
	}
	ma := f.MA.Unwrap()
	if ma == 0 || ma != ma {
		return 0
	}
	return (price - ma) / ma
}

// FixedSizer commits the same fraction on every signal.
type FixedSizer struct {
	Value float64
}

func (FixedSizer) Name() string { return SizerFixed }

func (s FixedSizer) Fraction(float64, model.Features) float64 { return s.Value }

// NewSizer returns the sizer registered under name.
func NewSizer(name string, fixed float64) (Sizer, error) {
	switch name {
	case "", SizerStrength:
		return DefaultStrengthSizer(), nil
	case SizerFixed:
		if fixed < 0 || fixed > 1 {
			return nil, fmt.Errorf("fixed fraction must be within [0,1], got %v", fixed)
		}
		return FixedSizer{Value: fixed}, nil
	default:
		return nil, fmt.Errorf("unknown sizer %q", name)
	}
}

// Fractions applies s to every observation.
func Fractions(s Sizer, prices []float64, features []model.Features) ([]float64, error) {
	if len(prices) != len(features) {
		return nil, fmt.Errorf("prices (%d) and features (%d) are not aligned", len(prices), len(features))
	}
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = s.Fraction(p, features[i])
	}
	return out, nil
}
