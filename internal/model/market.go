package model

import "time"

// PricePoint is a single observation of a time-indexed price series.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// Series is a time-ordered sequence of price observations for one symbol.
type Series struct {
	Symbol   string
	Period   string
	Interval string
	Points   []PricePoint
	Source   string
}

// Prices returns the price column of the series.
func (s Series) Prices() []float64 {
	prices := make([]float64, len(s.Points))
	for i, p := range s.Points {
		prices[i] = p.Price
	}
	return prices
}

// Empty reports whether the provider returned nothing.
func (s Series) Empty() bool { return len(s.Points) == 0 }
