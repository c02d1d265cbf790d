package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Collector validates requests and normalizes what the fetcher returns.
type Collector struct {
	Fetcher Fetcher
	logger  *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, logger: logger}
}

// Collect fetches the series for req. Bars with non-finite or non-positive
// prices and duplicate timestamps are dropped so downstream code sees a
// strictly increasing series. An empty result wraps ErrNoData.
func (c *Collector) Collect(ctx context.Context, req model.Request) (model.Series, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return model.Series{}, errors.New("symbol is required")
	}
	if _, err := ParsePeriod(req.Period); err != nil {
		return model.Series{}, err
	}
	if _, err := ParseInterval(req.Interval); err != nil {
		return model.Series{}, err
	}

	points, err := c.Fetcher.FetchSeries(ctx, symbol, req.Period, req.Interval)
	if err != nil {
		return model.Series{}, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fetcher.Name(), err)
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	clean := points[:0]
	dropped := 0
	for _, p := range points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
			dropped++
			continue
		}
		if n := len(clean); n > 0 && !clean[n-1].Time.Before(p.Time) {
			clean[n-1] = p
			dropped++
			continue
		}
		clean = append(clean, p)
	}
	if dropped > 0 {
		c.logger.Warn("dropped unusable bars", zap.String("symbol", symbol), zap.Int("dropped", dropped))
	}
	if len(clean) == 0 {
		return model.Series{}, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fetcher.Name(), ErrNoData)
	}

	c.logger.Debug("series collected",
		zap.String("symbol", symbol),
		zap.String("source", c.Fetcher.Name()),
		zap.Int("points", len(clean)))

	return model.Series{
		Symbol:   symbol,
		Period:   req.Period,
		Interval: req.Interval,
		Points:   clean,
		Source:   c.Fetcher.Name(),
	}, nil
}
