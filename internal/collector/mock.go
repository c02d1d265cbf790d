package collector

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// maxMockPoints bounds the generated series for long periods on small intervals.
const maxMockPoints = 2000

// MockFetcher returns controllable fixed data for development and testing.
// When Points is nil a deterministic oscillating series is generated around Price.
// It is safe for concurrent use; the fields must not change after the first fetch.
type MockFetcher struct {
	Price  float64
	Points []model.PricePoint
	Err    error
	End    time.Time

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many times FetchSeries ran.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

func (m *MockFetcher) FetchSeries(_ context.Context, symbol, period, interval string) ([]model.PricePoint, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Points != nil {
		if len(m.Points) == 0 {
			return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
		}
		out := make([]model.PricePoint, len(m.Points))
		copy(out, m.Points)
		return out, nil
	}

	lookback, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	count := int(lookback / iv.Duration)
	if count > maxMockPoints {
		count = maxMockPoints
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(iv.Duration)
	}
	return generateMockSeries(m.Price, count, end, iv.Duration), nil
}

func generateMockSeries(basePrice float64, count int, end time.Time, step time.Duration) []model.PricePoint {
	if basePrice <= 0 {
		basePrice = 100
	}
	points := make([]model.PricePoint, count)
	for i := 0; i < count; i++ {
		x := float64(i)
		p := basePrice * (1 + 0.03*math.Sin(x/9) + 0.01*math.Sin(x/2.5) + float64(i-count/2)*0.0002)
		points[i] = model.PricePoint{
			Time:  end.Add(-time.Duration(count-1-i) * step),
			Price: p,
		}
	}
	return points
}
