package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/recorder"
	"github.com/andrea060103/bot-trading-simulazione/internal/report"
)

func labelIcon(l model.Label) string {
	switch l {
	case model.LabelBuy:
		return "🟢"
	case model.LabelSell:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatLastSignal formats the most recent observation of result.
func FormatLastSignal(result *model.Result) string {
	if result == nil || len(result.Rows) == 0 {
		return "No data returned."
	}
	s := result.Summary
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> | %s\n\n",
		labelIcon(s.Last.Label), html.EscapeString(result.Request.Symbol),
		s.Last.Label, s.Last.Time.Format(report.TimeLayout)))
	b.WriteString(fmt.Sprintf("Price: %s\n", report.FormatFloat(s.Last.Price, 2)))
	b.WriteString(fmt.Sprintf("MA: %s | RSI: %s\n",
		report.FormatOption(s.Last.Features.MA, 2), report.FormatOption(s.Last.Features.RSI, 1)))
	b.WriteString(fmt.Sprintf("MACD: %s | Signal: %s\n",
		report.FormatOption(s.Last.Features.MACD, 4), report.FormatOption(s.Last.Features.SignalLine, 4)))
	b.WriteString(fmt.Sprintf("Portfolio: %s USD (%s)\n",
		report.FormatFloat(s.FinalValue, 2), report.FormatPct(s.ProfitPct)))
	return b.String()
}

// FormatStatus formats the aggregate summary of result.
func FormatStatus(result *model.Result) string {
	if result == nil {
		return "No run completed yet."
	}
	s := result.Summary
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> %s/%s via %s\n\n",
		html.EscapeString(result.Request.Symbol), result.Request.Period, result.Request.Interval,
		html.EscapeString(result.Source)))
	b.WriteString(fmt.Sprintf("Rule: %s | Sizer: %s | Walker: %s\n", result.Rule, result.Sizer, result.Walker))
	b.WriteString(fmt.Sprintf("Rows: %d | BUY %d  SELL %d  HOLD %d | Trades %d\n",
		len(result.Rows), s.Buys, s.Sells, s.Holds, s.Trades))
	b.WriteString(fmt.Sprintf("Initial: %s USD | Final: %s USD (%s)\n",
		report.FormatFloat(s.InitialBalance, 2), report.FormatFloat(s.FinalValue, 2), report.FormatPct(s.ProfitPct)))
	b.WriteString(fmt.Sprintf("High: %s | Low: %s | Max drawdown: %s %%\n",
		report.FormatFloat(s.High, 2), report.FormatFloat(s.Low, 2), report.FormatFloat(s.MaxDrawdownPct, 2)))
	b.WriteString(fmt.Sprintf("Updated: %s", result.GeneratedAt.Format(report.TimeLayout)))
	return b.String()
}

// FormatHistory formats the recorded runs, newest first.
func FormatHistory(runs []recorder.StoredRun) string {
	if len(runs) == 0 {
		return "No recorded runs."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s %s %s %s @ %s → %s USD (%s)\n",
			r.RecordedAt.Format(report.TimeLayout), html.EscapeString(r.Symbol), r.Interval,
			r.LastLabel, report.FormatFloat(r.LastPrice, 2),
			report.FormatFloat(r.FinalValue, 2), report.FormatPct(r.ProfitPct)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatLabelChange is sent when the live label of a symbol flips.
func FormatLabelChange(previous model.Label, result *model.Result) string {
	if previous == "" {
		return FormatLastSignal(result)
	}
	return fmt.Sprintf("Label changed %s → %s\n\n%s", previous, result.Summary.Last.Label, FormatLastSignal(result))
}

// FormatError formats a failed live iteration.
func FormatError(symbol string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s</b>: %s", html.EscapeString(symbol), html.EscapeString(err.Error()))
}
