package collector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/config"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// ErrNoData is returned when a provider answers with an empty series.
var ErrNoData = errors.New("no data returned")

// Fetcher defines the interface for fetching market data.
// Implementations return points in increasing time order.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol, period, interval string) ([]model.PricePoint, error)
	Name() string
}

// New builds the fetcher selected by cfg.Source.
func New(cfg config.MarketConfig, logger *zap.Logger) (Fetcher, error) {
	switch cfg.Source {
	case "", "yahoo":
		f := NewYahooFetcher(cfg.Proxy)
		if cfg.YahooBaseURL != "" {
			f.BaseURL = cfg.YahooBaseURL
		}
		return f, nil
	case "binance":
		return NewBinanceFetcher(), nil
	case "polygon":
		return NewPolygonFetcher(cfg.PolygonAPIKey)
	case "alpaca":
		return NewAlpacaFetcher(cfg.AlpacaAPIKey, cfg.AlpacaSecretKey)
	case "mock":
		logger.Warn("using generated market data")
		return &MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown market source %q", cfg.Source)
	}
}
