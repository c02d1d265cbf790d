package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

const binancePageSize = 1000

// klineLister is the slice of the Binance REST client the fetcher needs.
type klineLister interface {
	Klines(ctx context.Context, symbol, interval string, start, end int64) ([]*binance.Kline, error)
}

type binanceREST struct {
	client *binance.Client
}

func (b binanceREST) Klines(ctx context.Context, symbol, interval string, start, end int64) ([]*binance.Kline, error) {
	return b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(start).
		EndTime(end).
		Limit(binancePageSize).
		Do(ctx)
}

// BinanceFetcher reads spot klines from the public Binance API.
type BinanceFetcher struct {
	api klineLister
	now func() time.Time
}

// NewBinanceFetcher creates a fetcher on the public endpoints; no key is needed for klines.
func NewBinanceFetcher() *BinanceFetcher {
	return &BinanceFetcher{api: binanceREST{client: binance.NewClient("", "")}, now: time.Now}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchSeries pages through klines from now-period to now, using each kline's close price.
func (f *BinanceFetcher) FetchSeries(ctx context.Context, symbol, period, interval string) ([]model.PricePoint, error) {
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	binanceInterval, err := toBinanceInterval(iv)
	if err != nil {
		return nil, err
	}
	from, to, err := window(f.now(), period)
	if err != nil {
		return nil, err
	}

	pair := BinanceSymbol(symbol)
	start, end := from.UnixMilli(), to.UnixMilli()
	var points []model.PricePoint
	for start < end {
		klines, err := f.api.Klines(ctx, pair, binanceInterval, start, end)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: %w", pair, err)
		}
		for _, k := range klines {
			price, err := strconv.ParseFloat(k.Close, 64)
			if err != nil {
				return nil, fmt.Errorf("binance close %q: %w", k.Close, err)
			}
			points = append(points, model.PricePoint{Time: time.UnixMilli(k.OpenTime).UTC(), Price: price})
		}
		if len(klines) < binancePageSize {
			break
		}
		start = klines[len(klines)-1].CloseTime + 1
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("binance %s: %w", pair, ErrNoData)
	}
	return points, nil
}

// BinanceSymbol maps Yahoo style pairs (BTC-USD) to Binance tickers (BTCUSDT).
func BinanceSymbol(symbol string) string {
	s := strings.ToUpper(strings.ReplaceAll(symbol, "/", "-"))
	base, quote, ok := strings.Cut(s, "-")
	if !ok {
		return s
	}
	if quote == "USD" {
		quote = "USDT"
	}
	return base + quote
}

func toBinanceInterval(iv Interval) (string, error) {
	switch iv.Timespan {
	case models.Minute:
		if iv.Multiplier == 2 {
			return "", fmt.Errorf("binance has no 2m klines")
		}
		return fmt.Sprintf("%dm", iv.Multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", iv.Multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", iv.Multiplier), nil
	case models.Week:
		return "1w", nil
	default:
		return "", fmt.Errorf("unsupported timespan for Binance: %s", iv.Timespan)
	}
}
