package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/config"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParsePeriodAndInterval(t *testing.T) {
	d, err := ParsePeriod("5d")
	require.NoError(t, err)
	assert.Equal(t, 120*time.Hour, d)

	_, err = ParsePeriod("forever")
	assert.Error(t, err)

	iv, err := ParseInterval("60m")
	require.NoError(t, err)
	assert.Equal(t, Interval{1, models.Hour, time.Hour}, iv)

	_, err = ParseInterval("90s")
	assert.Error(t, err)
}

func TestYahooFetcher(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1709294400,1709294460,1709294520,1709294580],
			"indicators":{"quote":[{"close":[10.5,null,11.25,12]}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	points, err := f.FetchSeries(context.Background(), "BTC-USD", "1d", "1m")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BTC-USD", gotPath)
	assert.Contains(t, gotQuery, "interval=1m")
	assert.Contains(t, gotQuery, "range=1d")
	require.Len(t, points, 3)
	assert.Equal(t, 10.5, points[0].Price)
	assert.Equal(t, 12.0, points[2].Price)
	assert.Equal(t, time.Unix(1709294400, 0).UTC(), points[0].Time)
}

func TestYahooFetcher_PrefersAdjustedClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1709251200,1709337600],
			"indicators":{"quote":[{"close":[100,110]}],"adjclose":[{"adjclose":[50,55]}]}
		}]}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	points, err := f.FetchSeries(context.Background(), "AAPL", "5d", "1d")
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 55}, model.Series{Points: points}.Prices())
}

func TestYahooFetcher_EmptyAndErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		noData  bool
		wantErr bool
	}{
		{"empty result", 200, `{"chart":{"result":[]}}`, true, true},
		{"no timestamps", 200, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{"close":[]}]}}]}}`, true, true},
		{"unknown symbol", 404, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, true, true},
		{"api error", 200, `{"chart":{"result":null,"error":{"code":"Bad Request","description":"invalid range"}}}`, false, true},
		{"server error", 500, `oops`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewYahooFetcher("")
			f.BaseURL = srv.URL
			_, err := f.FetchSeries(context.Background(), "XXX", "1d", "1m")
			require.Error(t, err)
			assert.Equal(t, tt.noData, errors.Is(err, ErrNoData), err.Error())
		})
	}
}

func TestYahooFetcher_RejectsBadPeriod(t *testing.T) {
	f := NewYahooFetcher("")
	f.BaseURL = "http://127.0.0.1:0"
	_, err := f.FetchSeries(context.Background(), "BTC-USD", "7w", "1m")
	assert.Error(t, err)
}

type fakeKlines struct {
	pages [][]*binance.Kline
	calls []int64
	err   error
}

func (f *fakeKlines) Klines(_ context.Context, _, _ string, start, _ int64) ([]*binance.Kline, error) {
	f.calls = append(f.calls, start)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func klines(n int, from time.Time) []*binance.Kline {
	out := make([]*binance.Kline, n)
	for i := range out {
		open := from.Add(time.Duration(i) * time.Minute)
		out[i] = &binance.Kline{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(time.Minute).UnixMilli() - 1,
			Close:     "100.5",
		}
	}
	return out
}

func TestBinanceFetcher_Paginates(t *testing.T) {
	first := klines(binancePageSize, t0.Add(-24*time.Hour))
	second := klines(3, time.UnixMilli(first[len(first)-1].CloseTime+1))
	api := &fakeKlines{pages: [][]*binance.Kline{first, second}}
	f := &BinanceFetcher{api: api, now: func() time.Time { return t0 }}

	points, err := f.FetchSeries(context.Background(), "BTC-USD", "1d", "1m")
	require.NoError(t, err)
	assert.Len(t, points, binancePageSize+3)
	require.Len(t, api.calls, 2)
	assert.Equal(t, t0.Add(-24*time.Hour).UnixMilli(), api.calls[0])
	assert.Equal(t, first[len(first)-1].CloseTime+1, api.calls[1])
	assert.Equal(t, 100.5, points[0].Price)
}

func TestBinanceFetcher_EmptyAndErrors(t *testing.T) {
	f := &BinanceFetcher{api: &fakeKlines{}, now: func() time.Time { return t0 }}
	_, err := f.FetchSeries(context.Background(), "BTC-USD", "1d", "1m")
	assert.ErrorIs(t, err, ErrNoData)

	f.api = &fakeKlines{err: errors.New("banned")}
	_, err = f.FetchSeries(context.Background(), "BTC-USD", "1d", "1m")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoData))

	_, err = f.FetchSeries(context.Background(), "BTC-USD", "1d", "2m")
	assert.Error(t, err)
}

func TestBinanceSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", BinanceSymbol("BTC-USD"))
	assert.Equal(t, "ETHBTC", BinanceSymbol("eth/btc"))
	assert.Equal(t, "BNBUSDT", BinanceSymbol("BNBUSDT"))
}

type fakeAggs struct {
	aggs   []models.Agg
	i      int
	err    error
	params *models.ListAggsParams
}

func (f *fakeAggs) ListAggs(_ context.Context, params *models.ListAggsParams) aggsIterator {
	f.params = params
	return f
}

func (f *fakeAggs) Next() bool {
	if f.i < len(f.aggs) {
		f.i++
		return true
	}
	return false
}

func (f *fakeAggs) Item() models.Agg { return f.aggs[f.i-1] }
func (f *fakeAggs) Err() error       { return f.err }

func TestPolygonFetcher(t *testing.T) {
	api := &fakeAggs{aggs: []models.Agg{
		{Timestamp: models.Millis(t0), Close: 180.1},
		{Timestamp: models.Millis(t0.Add(time.Hour)), Close: 181.2},
	}}
	f := &PolygonFetcher{api: api, now: func() time.Time { return t0 }}

	points, err := f.FetchSeries(context.Background(), "AAPL", "5d", "1h")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 181.2, points[1].Price)
	assert.Equal(t, models.Hour, api.params.Timespan)
	assert.Equal(t, 1, api.params.Multiplier)
	assert.Equal(t, t0.Add(-120*time.Hour), time.Time(api.params.From))

	_, err = (&PolygonFetcher{api: &fakeAggs{}, now: time.Now}).FetchSeries(context.Background(), "AAPL", "5d", "1h")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = (&PolygonFetcher{api: &fakeAggs{err: errors.New("quota")}, now: time.Now}).FetchSeries(context.Background(), "AAPL", "5d", "1h")
	assert.Error(t, err)

	_, err = NewPolygonFetcher("")
	assert.Error(t, err)
}

type fakeBars struct {
	bars []marketdata.Bar
	req  marketdata.GetBarsRequest
}

func (f *fakeBars) GetBars(_ string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.req = req
	return f.bars, nil
}

func TestAlpacaFetcher(t *testing.T) {
	api := &fakeBars{bars: []marketdata.Bar{{Timestamp: t0, Close: 410}, {Timestamp: t0.Add(24 * time.Hour), Close: 412}}}
	f := &AlpacaFetcher{api: api, now: func() time.Time { return t0 }}

	points, err := f.FetchSeries(context.Background(), "MSFT", "1mo", "1d")
	require.NoError(t, err)
	assert.Equal(t, []float64{410, 412}, model.Series{Points: points}.Prices())
	assert.Equal(t, marketdata.NewTimeFrame(1, marketdata.Day), api.req.TimeFrame)
	assert.Equal(t, marketdata.All, api.req.Adjustment)

	_, err = (&AlpacaFetcher{api: &fakeBars{}, now: time.Now}).FetchSeries(context.Background(), "MSFT", "1mo", "1d")
	assert.ErrorIs(t, err, ErrNoData)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.FetchSeries(ctx, "MSFT", "1mo", "1d")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewAlpacaFetcher("key", "")
	assert.Error(t, err)
}

func TestMockFetcher(t *testing.T) {
	m := &MockFetcher{Price: 50, End: t0}
	points, err := m.FetchSeries(context.Background(), "BTC-USD", "1d", "1h")
	require.NoError(t, err)
	require.Len(t, points, 24)
	assert.Equal(t, t0, points[23].Time)
	for i := 1; i < len(points); i++ {
		assert.True(t, points[i-1].Time.Before(points[i].Time))
	}

	again, err := m.FetchSeries(context.Background(), "BTC-USD", "1d", "1h")
	require.NoError(t, err)
	assert.Equal(t, points, again)
	assert.Equal(t, 2, m.Calls())

	_, err = (&MockFetcher{Points: []model.PricePoint{}}).FetchSeries(context.Background(), "X", "1d", "1m")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMockFetcher_ConcurrentCalls(t *testing.T) {
	m := &MockFetcher{Price: 50, End: t0}
	const workers, perWorker = 8, 25

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				_, err := m.FetchSeries(context.Background(), "BTC-USD", "1d", "1h")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, m.Calls())
}

func TestCollector_Collect(t *testing.T) {
	m := &MockFetcher{Points: []model.PricePoint{
		{Time: t0.Add(2 * time.Minute), Price: 12},
		{Time: t0, Price: 10},
		{Time: t0.Add(time.Minute), Price: math.NaN()},
		{Time: t0, Price: 10.5},
		{Time: t0.Add(3 * time.Minute), Price: 0},
	}}
	c := NewCollector(m, zap.NewNop())

	series, err := c.Collect(context.Background(), model.Request{Symbol: " BTC-USD ", Period: "1d", Interval: "1m"})
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", series.Symbol)
	assert.Equal(t, "mock", series.Source)
	assert.Equal(t, []float64{10.5, 12}, series.Prices())
}

func TestCollector_Errors(t *testing.T) {
	c := NewCollector(&MockFetcher{Points: []model.PricePoint{{Time: t0, Price: -1}}}, nil)

	_, err := c.Collect(context.Background(), model.Request{Symbol: "X", Period: "1d", Interval: "1m"})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = c.Collect(context.Background(), model.Request{Symbol: "", Period: "1d", Interval: "1m"})
	assert.Error(t, err)
	_, err = c.Collect(context.Background(), model.Request{Symbol: "X", Period: "1w", Interval: "1m"})
	assert.Error(t, err)
	_, err = c.Collect(context.Background(), model.Request{Symbol: "X", Period: "1d", Interval: "1s"})
	assert.Error(t, err)

	c = NewCollector(&MockFetcher{Err: errors.New("down")}, nil)
	_, err = c.Collect(context.Background(), model.Request{Symbol: "X", Period: "1d", Interval: "1m"})
	assert.ErrorContains(t, err, "down")
}

func TestNew(t *testing.T) {
	tests := []struct {
		cfg     config.MarketConfig
		name    string
		wantErr bool
	}{
		{config.MarketConfig{Source: "yahoo", YahooBaseURL: "http://localhost"}, "yahoo", false},
		{config.MarketConfig{Source: "binance"}, "binance", false},
		{config.MarketConfig{Source: "polygon", PolygonAPIKey: "k"}, "polygon", false},
		{config.MarketConfig{Source: "alpaca", AlpacaAPIKey: "k", AlpacaSecretKey: "s"}, "alpaca", false},
		{config.MarketConfig{Source: "mock"}, "mock", false},
		{config.MarketConfig{Source: "polygon"}, "", true},
		{config.MarketConfig{Source: "reuters"}, "", true},
	}
	for _, tt := range tests {
		f, err := New(tt.cfg, zap.NewNop())
		if tt.wantErr {
			assert.Error(t, err, tt.cfg.Source)
			continue
		}
		require.NoError(t, err, tt.cfg.Source)
		assert.Equal(t, tt.name, f.Name())
	}

	f, err := New(config.MarketConfig{Source: "yahoo", YahooBaseURL: "http://localhost"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost", f.(*YahooFetcher).BaseURL)
}

func TestPeriodAndIntervalListsParse(t *testing.T) {
	for _, p := range Periods() {
		_, err := ParsePeriod(p)
		assert.NoError(t, err, p)
	}
	for _, iv := range Intervals() {
		_, err := ParseInterval(iv)
		assert.NoError(t, err, iv)
	}
	assert.Len(t, Periods(), len(periods))
	assert.Len(t, Intervals(), len(intervals))
}
