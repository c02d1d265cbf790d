package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// LastSignal renders the summary block of the most recent observation.
func LastSignal(result *model.Result) string {
	if len(result.Rows) == 0 {
		return ""
	}
	s := result.Summary
	lines := []string{
		TitleStyle.Render("Last signal"),
		fmt.Sprintf("Date:      %s", s.Last.Time.Format(TimeLayout)),
		fmt.Sprintf("Price:     %s", FormatFloat(s.Last.Price, 2)),
		fmt.Sprintf("Label:     %s", LabelStyle(s.Last.Label).Render(s.Last.Label.String())),
		fmt.Sprintf("Portfolio: %s USD", FormatFloat(s.FinalValue, 2)),
		fmt.Sprintf("Profit:    %s", FormatPct(s.ProfitPct)),
	}
	return BoxStyle.Render(strings.Join(lines, "\n"))
}

// Stats renders the aggregate line under the last signal.
func Stats(result *model.Result) string {
	s := result.Summary
	return fmt.Sprintf("%s %s via %s | rule %s, sizer %s, walker %s | BUY %d  SELL %d  HOLD %d  trades %d | high %s  low %s  max drawdown %s %%",
		result.Request.Symbol, result.Request.Interval, result.Source,
		result.Rule, result.Sizer, result.Walker,
		s.Buys, s.Sells, s.Holds, s.Trades,
		FormatFloat(s.High, 2), FormatFloat(s.Low, 2), FormatFloat(s.MaxDrawdownPct, 2))
}

// RenderOptions controls Render.
type RenderOptions struct {
	Table       Options
	ChartWidth  int
	ChartHeight int
}

// DefaultRenderOptions shows the last 20 rows and a 72x10 chart.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Table: Options{MaxRows: 20}, ChartWidth: 72, ChartHeight: 10}
}

// Render writes the signal table, the chart and the last signal block to w.
func Render(w io.Writer, result *model.Result, opts RenderOptions) error {
	sections := []string{
		TitleStyle.Render("Signal table"),
		Table(result, opts.Table),
		Chart(result, opts.ChartWidth, opts.ChartHeight),
		LastSignal(result),
		Stats(result),
	}
	for _, s := range sections {
		if s == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, s); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

// RenderError writes the single message shown when a run produced nothing.
func RenderError(w io.Writer, err error) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: "+err.Error()))
}
