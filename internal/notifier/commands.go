package notifier

import (
	"fmt"
	"strings"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/recorder"
)

const historyLimit = 5

const helpText = `<b>Available commands</b>
/last - latest signal
/status - run summary
/history - recorded runs
/help - this message`

// Commands answers the bot commands from the latest live result and the
// recorded history.
type Commands struct {
	// Latest returns the most recent result, or nil before the first run.
	Latest func() *model.Result
	// History may be nil when no recorder can read back runs.
	History recorder.RunLister
}

// Handle implements CommandHandler.
func (c *Commands) Handle(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Commands in groups arrive as /last@botname.
	name, _, _ := strings.Cut(fields[0], "@")
	switch name {
	case "/last":
		return FormatLastSignal(c.latest())
	case "/status":
		return FormatStatus(c.latest())
	case "/history":
		if c.History == nil {
			return "History is not available."
		}
		runs, err := c.History.LastRuns(historyLimit)
		if err != nil {
			return fmt.Sprintf("Failed to read history: %v", err)
		}
		return FormatHistory(runs)
	default:
		return helpText
	}
}

func (c *Commands) latest() *model.Result {
	if c.Latest == nil {
		return nil
	}
	return c.Latest()
}
