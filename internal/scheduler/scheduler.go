package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/collector"
	"github.com/andrea060103/bot-trading-simulazione/internal/config"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/notifier"
	"github.com/andrea060103/bot-trading-simulazione/internal/recorder"
)

const notifyRetries = 3

// Runner produces one simulation for a request.
type Runner interface {
	Run(ctx context.Context, req model.Request) (*model.Result, error)
}

// Sink receives the outcome of every live iteration.
type Sink interface {
	OnResult(result *model.Result)
	OnError(err error, retryIn time.Duration)
}

// Scheduler re-runs the simulation on a fixed interval.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Request  model.Request
	Recorder recorder.Recorder
	Notifier notifier.Notifier
	Sinks    []Sink

	ctx       context.Context
	logger    *zap.Logger
	every     time.Duration
	statePath string
	now       func() time.Time

	// run serializes iterations between cron and RunNow.
	run sync.Mutex
	// pending tracks iterations started by Trigger.
	pending sync.WaitGroup

	mu       sync.Mutex
	stopped  bool
	backoff  *backoff.Backoff
	retryAt  time.Time
	failures int
	latest   *model.Result
	state    *State
}

// NewScheduler creates a scheduler for req. A nil recorder or notifier disables that sink.
func NewScheduler(ctx context.Context, runner Runner, req model.Request, live config.LiveConfig, rec recorder.Recorder, tn notifier.Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	state := &State{}
	if live.StateFile != "" {
		loaded, err := LoadState(live.StateFile)
		if err != nil {
			return nil, err
		}
		state = loaded
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		Runner:    runner,
		Request:   req,
		Recorder:  rec,
		Notifier:  tn,
		ctx:       ctx,
		logger:    logger,
		every:     live.Every,
		statePath: live.StateFile,
		now:       time.Now,
		backoff: &backoff.Backoff{
			Min:    live.BackoffMin,
			Max:    live.BackoffMax,
			Factor: 2,
		},
		state: state,
	}, nil
}

// AddSink registers another consumer of live results.
func (s *Scheduler) AddSink(sink Sink) {
	s.Sinks = append(s.Sinks, sink)
}

// Register schedules the periodic iteration.
func (s *Scheduler) Register() error {
	if s.every < time.Second {
		return fmt.Errorf("refresh interval %s is below one second", s.every)
	}
	s.Cron.Schedule(cron.Every(s.every), cron.FuncJob(s.tick))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started",
		zap.String("symbol", s.Request.Symbol),
		zap.Duration("every", s.every))
}

// Stop stops the cron scheduler and waits for running iterations, including
// those started by Trigger. Later Trigger calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	<-s.Cron.Stop().Done()
	s.pending.Wait()
	s.logger.Info("scheduler stopped")
}

// RunNow executes one iteration immediately, ignoring any pending backoff.
func (s *Scheduler) RunNow() {
	s.iterate()
}

// Trigger runs RunNow in the background. Stop waits for it to finish.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.iterate()
	}()
}

// Latest returns the most recent successful result, or nil.
func (s *Scheduler) Latest() *model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// RetryAt returns when the next attempt is allowed after a failure.
func (s *Scheduler) RetryAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryAt
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	wait := s.retryAt.Sub(s.now())
	s.mu.Unlock()
	if wait > 0 {
		s.logger.Debug("skipping tick during backoff", zap.Duration("retry_in", wait))
		return
	}
	s.iterate()
}

func (s *Scheduler) iterate() {
	s.run.Lock()
	defer s.run.Unlock()

	s.logger.Debug("running live iteration", zap.String("symbol", s.Request.Symbol))
	result, err := s.Runner.Run(s.ctx, s.Request)
	if err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	s.backoff.Reset()
	s.retryAt = time.Time{}
	s.failures = 0
	s.latest = result
	previous := s.state.labelFor(s.Request)
	s.mu.Unlock()

	for _, sink := range s.Sinks {
		sink.OnResult(result)
	}
	if err := s.Recorder.RecordRun(recorder.NewRunRecord(result)); err != nil {
		s.logger.Error("record run", zap.Error(err))
	}

	last := result.Summary.Last
	if last.Label != previous {
		s.logger.Info("label changed",
			zap.String("symbol", result.Request.Symbol),
			zap.String("from", previous.String()),
			zap.String("to", last.Label.String()))
		s.trySend(notifier.FormatLabelChange(previous, result))
	}
	s.saveState(result)
}

func (s *Scheduler) fail(err error) {
	s.mu.Lock()
	wait := s.backoff.Duration()
	s.retryAt = s.now().Add(wait)
	s.failures++
	first := s.failures == 1
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("symbol", s.Request.Symbol),
		zap.Duration("retry_in", wait),
		zap.Error(err),
	}
	if errors.Is(err, collector.ErrNoData) {
		s.logger.Warn("live iteration returned no data", fields...)
	} else {
		s.logger.Error("live iteration failed", fields...)
	}
	for _, sink := range s.Sinks {
		sink.OnError(err, wait)
	}
	// Only the first failure of a streak is reported.
	if first && !errors.Is(err, context.Canceled) {
		s.trySend(notifier.FormatError(s.Request.Symbol, err))
	}
}

func (s *Scheduler) saveState(result *model.Result) {
	last := result.Summary.Last
	s.mu.Lock()
	s.state = &State{
		Symbol:    s.Request.Symbol,
		Interval:  s.Request.Interval,
		LastLabel: last.Label,
		LastPrice: last.Price,
		LastValue: result.Summary.FinalValue,
		LastTime:  last.Time,
	}
	state := *s.state
	s.mu.Unlock()
	if s.statePath == "" {
		return
	}
	if err := SaveState(s.statePath, &state); err != nil {
		s.logger.Error("save live state", zap.Error(err))
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.ctx, text, notifyRetries); err != nil {
		s.logger.Error("send notification", zap.Error(err))
	}
}
