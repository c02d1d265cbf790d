package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/recorder"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop())
	n.APIBase = srv.URL
	n.Client = srv.Client()
	n.retryMin = time.Millisecond
	n.retryMax = 2 * time.Millisecond
	n.pollPause = time.Millisecond
	return n
}

func sampleResult() *model.Result {
	last := model.Row{
		Time:  time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Price: 105,
		Features: model.Features{
			MA:         optional.Some(100.0),
			RSI:        optional.Some(55.5),
			MACD:       optional.None[float64](),
			SignalLine: optional.None[float64](),
		},
		Label: model.LabelBuy,
		Value: 1050,
	}
	return &model.Result{
		Request: model.Request{Symbol: "BTC-USD", Period: "1d", Interval: "1m", InitialBalance: 1000},
		Source:  "mock",
		Rule:    "ma",
		Sizer:   "strength",
		Walker:  "portfolio",
		Rows:    []model.Row{last},
		Summary: model.Summary{
			Last: last, InitialBalance: 1000, FinalValue: 1050, ProfitPct: 5,
			Buys: 1, Trades: 1, High: 105, Low: 105,
		},
		GeneratedAt: last.Time,
	}
}

func TestSend(t *testing.T) {
	var got map[string]string
	var path string
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, n.Send("<b>hi</b>"))
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "<b>hi</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendAPIError(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	})
	err := n.Send("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, n.SendWithRetry(context.Background(), "x", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := n.SendWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetryCancelled(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	n.retryMin = time.Hour
	n.retryMax = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.SendWithRetry(ctx, "x", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartPolling(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		offsets []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			mu.Lock()
			offsets = append(offsets, r.URL.Query().Get("offset"))
			first := len(offsets) == 1
			mu.Unlock()
			if first {
				fmt.Fprint(w, `{"ok":true,"result":[
					{"update_id":10,"message":{"text":"/last","chat":{"id":42}}},
					{"update_id":11,"message":{"text":"/last","chat":{"id":7}}},
					{"update_id":12}
				]}`)
				return
			}
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case "/botTOKEN/sendMessage":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			cancel()
		}
	})

	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(cmd string) string { return "reply to " + cmd })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"reply to /last"}, replies)
	assert.Equal(t, "0", offsets[0])
	if len(offsets) > 1 {
		assert.Equal(t, "13", offsets[1])
	}
}

func TestStartPollingRetriesAfterAPIError(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) >= 3 {
			cancel()
		}
		fmt.Fprint(w, `{"ok":false,"description":"Unauthorized"}`)
	})

	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(string) string { return "" })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestFormatLastSignal(t *testing.T) {
	msg := FormatLastSignal(sampleResult())
	assert.Contains(t, msg, "<b>BTC-USD BUY</b>")
	assert.Contains(t, msg, "2024-03-01 12:30")
	assert.Contains(t, msg, "Price: 105.00")
	assert.Contains(t, msg, "MA: 100.00 | RSI: 55.5")
	assert.Contains(t, msg, "MACD: - | Signal: -")
	assert.Contains(t, msg, "Portfolio: 1050.00 USD (+5.00 %)")

	assert.Equal(t, "No data returned.", FormatLastSignal(nil))
	assert.Equal(t, "No data returned.", FormatLastSignal(&model.Result{}))
}

func TestFormatStatus(t *testing.T) {
	msg := FormatStatus(sampleResult())
	assert.Contains(t, msg, "BTC-USD</b> 1d/1m via mock")
	assert.Contains(t, msg, "Rule: ma | Sizer: strength | Walker: portfolio")
	assert.Contains(t, msg, "BUY 1  SELL 0  HOLD 0 | Trades 1")
	assert.Contains(t, msg, "Final: 1050.00 USD (+5.00 %)")
	assert.Equal(t, "No run completed yet.", FormatStatus(nil))
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "No recorded runs.", FormatHistory(nil))
	msg := FormatHistory([]recorder.StoredRun{{
		RecordedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Symbol:     "ETH-USD", Interval: "5m", LastLabel: model.LabelSell,
		LastPrice: 3000, FinalValue: 990, ProfitPct: -1,
	}})
	assert.Contains(t, msg, "2024-03-01 09:00 ETH-USD 5m SELL @ 3000.00 → 990.00 USD (-1.00 %)")
}

func TestFormatLabelChange(t *testing.T) {
	r := sampleResult()
	assert.Equal(t, FormatLastSignal(r), FormatLabelChange("", r))
	assert.Contains(t, FormatLabelChange(model.LabelHold, r), "Label changed HOLD → BUY")
}

func TestFormatErrorEscapes(t *testing.T) {
	msg := FormatError("A<B", errors.New("bad <tag>"))
	assert.Equal(t, "⚠️ <b>A&lt;B</b>: bad &lt;tag&gt;", msg)
}

type fakeLister struct {
	runs  []recorder.StoredRun
	err   error
	limit int
}

func (f *fakeLister) LastRuns(limit int) ([]recorder.StoredRun, error) {
	f.limit = limit
	return f.runs, f.err
}

func TestCommands(t *testing.T) {
	result := sampleResult()
	lister := &fakeLister{runs: []recorder.StoredRun{{Symbol: "BTC-USD", LastLabel: model.LabelHold}}}
	c := &Commands{Latest: func() *model.Result { return result }, History: lister}

	tests := []struct {
		command string
		want    string
	}{
		{"/last", "<b>BTC-USD BUY</b>"},
		{"/last@sim_bot", "<b>BTC-USD BUY</b>"},
		{"/status", "Rule: ma"},
		{"/history", "Recent runs"},
		{"/help", "Available commands"},
		{"hello", "Available commands"},
		{"", "Available commands"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Contains(t, c.Handle(tt.command), tt.want)
		})
	}
	assert.Equal(t, historyLimit, lister.limit)
}

func TestCommandsWithoutSources(t *testing.T) {
	c := &Commands{}
	assert.Equal(t, "No data returned.", c.Handle("/last"))
	assert.Equal(t, "No run completed yet.", c.Handle("/status"))
	assert.Equal(t, "History is not available.", c.Handle("/history"))

	c.History = &fakeLister{err: errors.New("db closed")}
	assert.Contains(t, c.Handle("/history"), "db closed")
}
