package ui

import (
	"time"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// ResultMsg carries a fresh simulation from the scheduler.
type ResultMsg struct {
	Result *model.Result
}

// ErrorMsg reports a failed refresh and when the next attempt is due.
type ErrorMsg struct {
	Err     error
	RetryIn time.Duration
}
