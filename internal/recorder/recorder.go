package recorder

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// RunRecord is one persisted simulation.
type RunRecord struct {
	ID         uuid.UUID
	RecordedAt time.Time
	Result     *model.Result
}

// NewRunRecord assigns a fresh run id to result.
func NewRunRecord(result *model.Result) *RunRecord {
	return &RunRecord{ID: uuid.New(), RecordedAt: time.Now().UTC(), Result: result}
}

// StoredRun is the summary line of a recorded run.
type StoredRun struct {
	ID         string
	RecordedAt time.Time
	Symbol     string
	Interval   string
	Rule       string
	LastLabel  model.Label
	LastPrice  float64
	FinalValue float64
	ProfitPct  float64
	Rows       int
}

// Recorder persists historical runs for analysis.
type Recorder interface {
	RecordRun(run *RunRecord) error
	Close() error
}

// RunLister is implemented by recorders that can read back what they stored.
type RunLister interface {
	LastRuns(limit int) ([]StoredRun, error)
}

// Multi fans a run out to several recorders. Every recorder is attempted;
// the errors are joined.
type Multi []Recorder

func (m Multi) RecordRun(run *RunRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordRun(run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LastRuns reads from the first recorder that supports it.
func (m Multi) LastRuns(limit int) ([]StoredRun, error) {
	for _, r := range m {
		if l, ok := r.(RunLister); ok {
			return l.LastRuns(limit)
		}
	}
	return nil, nil
}

// nullable maps undefined and non-finite values to SQL NULL.
func nullable(o optional.Option[float64]) any {
	if o.IsNone() {
		return nil
	}
	return finite(o.Unwrap())
}

func finite(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
