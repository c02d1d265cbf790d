package collector

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

type aggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

type aggsLister interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams) aggsIterator
}

type polygonREST struct {
	client *polygon.Client
}

func (p polygonREST) ListAggs(ctx context.Context, params *models.ListAggsParams) aggsIterator {
	return p.client.ListAggs(ctx, params)
}

// PolygonFetcher reads aggregate bars from Polygon.io.
type PolygonFetcher struct {
	api aggsLister
	now func() time.Time
}

// NewPolygonFetcher creates a fetcher; apiKey is required.
func NewPolygonFetcher(apiKey string) (*PolygonFetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("polygon api key is required")
	}
	return &PolygonFetcher{api: polygonREST{client: polygon.New(apiKey)}, now: time.Now}, nil
}

func (f *PolygonFetcher) Name() string { return "polygon" }

func (f *PolygonFetcher) FetchSeries(ctx context.Context, symbol, period, interval string) ([]model.PricePoint, error) {
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	from, to, err := window(f.now(), period)
	if err != nil {
		return nil, err
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: iv.Multiplier,
		Timespan:   iv.Timespan,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithAdjusted(true).WithOrder(models.Asc).WithLimit(50000)

	iter := f.api.ListAggs(ctx, params)
	var points []model.PricePoint
	for iter.Next() {
		agg := iter.Item()
		points = append(points, model.PricePoint{Time: time.Time(agg.Timestamp).UTC(), Price: agg.Close})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon aggregates %s: %w", symbol, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("polygon %s: %w", symbol, ErrNoData)
	}
	return points, nil
}
