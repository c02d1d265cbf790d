package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Sink forwards live results to a running dashboard.
type Sink struct {
	Program Sender
}

func (s Sink) OnResult(result *model.Result) {
	s.Program.Send(ResultMsg{Result: result})
}

func (s Sink) OnError(err error, retryIn time.Duration) {
	s.Program.Send(ErrorMsg{Err: err, RetryIn: retryIn})
}
