package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/collector"
	"github.com/andrea060103/bot-trading-simulazione/internal/config"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/notifier"
	"github.com/andrea060103/bot-trading-simulazione/internal/recorder"
)

type scriptedRunner struct {
	mu      sync.Mutex
	labels  []model.Label
	errs    []error
	calls   int
	request model.Request
}

func (r *scriptedRunner) Run(_ context.Context, req model.Request) (*model.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	r.calls++
	r.request = req
	if i < len(r.errs) && r.errs[i] != nil {
		return nil, r.errs[i]
	}
	label := model.LabelHold
	if i < len(r.labels) {
		label = r.labels[i]
	}
	last := model.Row{
		Time:  time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		Price: 100 + float64(i),
		Label: label,
		Value: 1000,
	}
	return &model.Result{
		Request: req,
		Rows:    []model.Row{last},
		Summary: model.Summary{Last: last, FinalValue: 1000 + float64(i)},
	}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) Send(text string) error {
	return f.SendWithRetry(context.Background(), text, 0)
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.err
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeRecorder struct {
	runs []*recorder.RunRecord
	err  error
}

func (f *fakeRecorder) RecordRun(run *recorder.RunRecord) error {
	f.runs = append(f.runs, run)
	return f.err
}

func (f *fakeRecorder) Close() error { return nil }

type fakeSink struct {
	results []*model.Result
	errs    []error
	waits   []time.Duration
}

func (f *fakeSink) OnResult(result *model.Result) { f.results = append(f.results, result) }

func (f *fakeSink) OnError(err error, retryIn time.Duration) {
	f.errs = append(f.errs, err)
	f.waits = append(f.waits, retryIn)
}

func liveConfig(t *testing.T) config.LiveConfig {
	return config.LiveConfig{
		Every:      time.Second,
		BackoffMin: time.Second,
		BackoffMax: 4 * time.Second,
		Rows:       10,
		StateFile:  filepath.Join(t.TempDir(), "state", "live.json"),
	}
}

var btc = model.Request{Symbol: "BTC-USD", Period: "1d", Interval: "1m", InitialBalance: 1000}

func newTestScheduler(t *testing.T, runner Runner, live config.LiveConfig, rec recorder.Recorder, n *fakeNotifier) (*Scheduler, *fakeSink) {
	t.Helper()
	var tn notifier.Notifier
	if n != nil {
		tn = n
	}
	s, err := NewScheduler(context.Background(), runner, btc, live, rec, tn, zap.NewNop())
	require.NoError(t, err)
	sink := &fakeSink{}
	s.AddSink(sink)
	return s, sink
}

func TestRunNowPublishesToSinks(t *testing.T) {
	runner := &scriptedRunner{labels: []model.Label{model.LabelBuy}}
	rec := &fakeRecorder{}
	n := &fakeNotifier{}
	s, sink := newTestScheduler(t, runner, liveConfig(t), rec, n)

	s.RunNow()

	require.Len(t, sink.results, 1)
	assert.Equal(t, btc, runner.request)
	require.Len(t, rec.runs, 1)
	assert.Same(t, sink.results[0], rec.runs[0].Result)
	assert.Same(t, sink.results[0], s.Latest())
	require.Len(t, n.messages(), 1)
	assert.Contains(t, n.messages()[0], "BTC-USD BUY")
}

func TestNotifiesOnlyOnLabelChange(t *testing.T) {
	runner := &scriptedRunner{labels: []model.Label{
		model.LabelBuy, model.LabelBuy, model.LabelSell, model.LabelSell, model.LabelHold,
	}}
	n := &fakeNotifier{}
	s, _ := newTestScheduler(t, runner, liveConfig(t), nil, n)

	for range 5 {
		s.RunNow()
	}

	msgs := n.messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1], "Label changed BUY → SELL")
	assert.Contains(t, msgs[2], "Label changed SELL → HOLD")
}

func TestStatePreventsRepeatNotificationAfterRestart(t *testing.T) {
	live := liveConfig(t)
	n := &fakeNotifier{}

	first, _ := newTestScheduler(t, &scriptedRunner{labels: []model.Label{model.LabelSell}}, live, nil, n)
	first.RunNow()
	require.Len(t, n.messages(), 1)

	state, err := LoadState(live.StateFile)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", state.Symbol)
	assert.Equal(t, model.LabelSell, state.LastLabel)
	assert.InDelta(t, 1000.0, state.LastValue, 1e-9)

	second, _ := newTestScheduler(t, &scriptedRunner{labels: []model.Label{model.LabelSell}}, live, nil, n)
	second.RunNow()
	assert.Len(t, n.messages(), 1)
}

func TestStateForOtherSymbolIsIgnored(t *testing.T) {
	live := liveConfig(t)
	require.NoError(t, SaveState(live.StateFile, &State{Symbol: "ETH-USD", Interval: "1m", LastLabel: model.LabelHold}))

	n := &fakeNotifier{}
	s, _ := newTestScheduler(t, &scriptedRunner{}, live, nil, n)
	s.RunNow()
	assert.Len(t, n.messages(), 1)
}

func TestFailureBacksOffAndSkipsTicks(t *testing.T) {
	noData := fmt.Errorf("fetch BTC-USD: %w", collector.ErrNoData)
	runner := &scriptedRunner{errs: []error{noData, noData, noData, nil}}
	n := &fakeNotifier{}
	s, sink := newTestScheduler(t, runner, liveConfig(t), nil, n)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.tick()
	require.Len(t, sink.errs, 1)
	assert.ErrorIs(t, sink.errs[0], collector.ErrNoData)
	assert.Equal(t, time.Second, sink.waits[0])
	assert.Equal(t, now.Add(time.Second), s.RetryAt())

	// Still inside the backoff window.
	s.tick()
	assert.Equal(t, 1, runner.calls)

	now = now.Add(time.Second)
	s.tick()
	s.RunNow()
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sink.waits)

	// Only the first failure of the streak is reported.
	require.Len(t, n.messages(), 1)
	assert.Contains(t, n.messages()[0], "no data returned")

	s.RunNow()
	require.Len(t, sink.results, 1)
	assert.True(t, s.RetryAt().IsZero())
	assert.Equal(t, 4, runner.calls)
}

func TestBackoffIsCapped(t *testing.T) {
	errs := make([]error, 6)
	for i := range errs {
		errs[i] = errors.New("provider down")
	}
	s, sink := newTestScheduler(t, &scriptedRunner{errs: errs}, liveConfig(t), nil, nil)
	for range errs {
		s.RunNow()
	}
	for _, w := range sink.waits {
		assert.LessOrEqual(t, w, 4*time.Second)
	}
	assert.Equal(t, 4*time.Second, sink.waits[len(sink.waits)-1])
}

func TestSuccessResetsBackoff(t *testing.T) {
	boom := errors.New("boom")
	runner := &scriptedRunner{errs: []error{boom, boom, nil, boom}}
	s, sink := newTestScheduler(t, runner, liveConfig(t), nil, nil)
	for range 4 {
		s.RunNow()
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, time.Second}, sink.waits)
}

func TestRecorderErrorDoesNotStopNotification(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	n := &fakeNotifier{}
	s, sink := newTestScheduler(t, &scriptedRunner{}, liveConfig(t), rec, n)
	s.RunNow()
	assert.Len(t, sink.results, 1)
	assert.Len(t, n.messages(), 1)
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, &scriptedRunner{}, liveConfig(t), nil, nil)
	require.NoError(t, s.Register())
	assert.Len(t, s.Cron.Entries(), 1)

	live := liveConfig(t)
	live.Every = 500 * time.Millisecond
	fast, _ := newTestScheduler(t, &scriptedRunner{}, live, nil, nil)
	assert.Error(t, fast.Register())
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(t, &scriptedRunner{}, liveConfig(t), nil, nil)
	require.NoError(t, s.Register())
	s.Start()
	s.Stop()
}

// gatedRunner blocks every run until release is closed.
type gatedRunner struct {
	started chan struct{}
	release chan struct{}
	done    atomic.Int32
}

func (r *gatedRunner) Run(ctx context.Context, req model.Request) (*model.Result, error) {
	r.started <- struct{}{}
	<-r.release
	r.done.Add(1)
	return (&scriptedRunner{labels: []model.Label{model.LabelHold}}).Run(ctx, req)
}

func TestStopWaitsForTriggeredRun(t *testing.T) {
	runner := &gatedRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	s, sink := newTestScheduler(t, runner, liveConfig(t), nil, nil)
	s.Trigger()
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a triggered run was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the run finished")
	}
	assert.Equal(t, int32(1), runner.done.Load())
	assert.Len(t, sink.results, 1)

	s.Trigger()
	assert.Equal(t, int32(1), runner.done.Load())
}

func TestLoadStateMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	state, err := LoadState(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, &State{}, state)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, SaveState(good, &State{Symbol: "X"}))
	loaded, err := LoadState(good)
	require.NoError(t, err)
	assert.Equal(t, "X", loaded.Symbol)
	assert.False(t, loaded.UpdatedAt.IsZero())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadState(bad)
	assert.Error(t, err)

	_, err = NewScheduler(context.Background(), &scriptedRunner{}, btc, config.LiveConfig{StateFile: dir}, nil, nil, zap.NewNop())
	assert.Error(t, err)
}
