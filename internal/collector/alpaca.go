package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

type barsGetter interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaFetcher reads stock bars from the Alpaca market data API.
type AlpacaFetcher struct {
	api barsGetter
	now func() time.Time
}

// NewAlpacaFetcher creates a fetcher; both keys are required.
func NewAlpacaFetcher(apiKey, apiSecret string) (*AlpacaFetcher, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("alpaca api key and secret are required")
	}
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
	return &AlpacaFetcher{api: client, now: time.Now}, nil
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

// FetchSeries returns split and dividend adjusted closes. The Alpaca client
// has no context support; ctx is only checked before the request.
func (f *AlpacaFetcher) FetchSeries(ctx context.Context, symbol, period, interval string) ([]model.PricePoint, error) {
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	tf, err := toAlpacaTimeFrame(iv)
	if err != nil {
		return nil, err
	}
	from, to, err := window(f.now(), period)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bars, err := f.api.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Adjustment: marketdata.All,
		Start:      from,
		End:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, ErrNoData)
	}

	points := make([]model.PricePoint, len(bars))
	for i, b := range bars {
		points[i] = model.PricePoint{Time: b.Timestamp.UTC(), Price: b.Close}
	}
	return points, nil
}

func toAlpacaTimeFrame(iv Interval) (marketdata.TimeFrame, error) {
	switch iv.Timespan {
	case models.Minute:
		return marketdata.NewTimeFrame(iv.Multiplier, marketdata.Min), nil
	case models.Hour:
		return marketdata.NewTimeFrame(iv.Multiplier, marketdata.Hour), nil
	case models.Day:
		return marketdata.NewTimeFrame(iv.Multiplier, marketdata.Day), nil
	case models.Week:
		return marketdata.NewTimeFrame(iv.Multiplier, marketdata.Week), nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported timespan for Alpaca: %s", iv.Timespan)
	}
}
