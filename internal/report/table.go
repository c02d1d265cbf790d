package report

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Style definitions.
var (
	TitleStyle  = lipgloss.NewStyle().Bold(true)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	CellStyle   = lipgloss.NewStyle().Padding(0, 1)
	BuyStyle    = CellStyle.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("120"))
	SellStyle   = CellStyle.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("210"))
	ErrorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	BoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Options controls what the table shows.
type Options struct {
	// MaxRows keeps only the most recent rows; 0 shows everything.
	MaxRows int
	// Indicators adds the RSI, MACD and signal line columns.
	Indicators bool
}

// Headers returns the column titles for opts.
func Headers(opts Options) []string {
	h := []string{"Time", "Price", "MA"}
	if opts.Indicators {
		h = append(h, "RSI", "MACD", "Signal line")
	}
	return append(h, "Label", "Portfolio", "Profit %")
}

// Cells renders one row as strings in Headers order.
func Cells(r model.Row, opts Options) []string {
	c := []string{
		r.Time.Format(TimeLayout),
		FormatFloat(r.Price, 2),
		FormatOption(r.Features.MA, 2),
	}
	if opts.Indicators {
		c = append(c,
			FormatOption(r.Features.RSI, 1),
			FormatOption(r.Features.MACD, 4),
			FormatOption(r.Features.SignalLine, 4))
	}
	return append(c, r.Label.String(), FormatFloat(r.Value, 2), FormatPct(r.ProfitPct))
}

// VisibleRows applies MaxRows to rows.
func VisibleRows(rows []model.Row, maxRows int) []model.Row {
	if maxRows > 0 && len(rows) > maxRows {
		return rows[len(rows)-maxRows:]
	}
	return rows
}

// Table renders the signal table. BUY labels are green and SELL labels red.
func Table(result *model.Result, opts Options) string {
	rows := VisibleRows(result.Rows, opts.MaxRows)
	headers := Headers(opts)
	labelCol := len(headers) - 3

	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = Cells(r, opts)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			if col == labelCol && row >= 0 && row < len(rows) {
				return LabelStyle(rows[row].Label)
			}
			return CellStyle
		})
	return t.Render()
}

// LabelStyle returns the cell style for l.
func LabelStyle(l model.Label) lipgloss.Style {
	switch l {
	case model.LabelBuy:
		return BuyStyle
	case model.LabelSell:
		return SellStyle
	default:
		return CellStyle
	}
}
