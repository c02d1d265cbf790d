package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/report"
)

var (
	helpStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Model is the Bubble Tea model of the live dashboard.
type Model struct {
	title       string
	rows        int
	table       table.Model
	result      *model.Result
	err         error
	retryIn     time.Duration
	lastRefresh time.Time
	width       int
	height      int
	refresh     func()
	now         func() time.Time
}

// NewModel creates a dashboard showing the latest rows of each result.
// refresh, when set, is invoked by the "r" key.
func NewModel(title string, rows int, refresh func()) Model {
	if rows <= 0 {
		rows = 15
	}
	return Model{
		title:   title,
		rows:    rows,
		table:   newTable(rows),
		refresh: refresh,
		now:     time.Now,
		width:   80,
	}
}

func newTable(height int) table.Model {
	headers := report.Headers(report.Options{Indicators: true})
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		w := 10
		switch h {
		case "Time":
			w = 16
		case "Label":
			w = 6
		case "Signal line":
			w = 11
		}
		columns[i] = table.Column{Title: h, Width: w}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if m.refresh != nil {
				refresh := m.refresh
				return m, func() tea.Msg {
					refresh()
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		return m, nil

	case ResultMsg:
		m.result = msg.Result
		m.err = nil
		m.retryIn = 0
		m.lastRefresh = m.now()
		m.table.SetRows(tableRows(msg.Result, m.rows))
		m.table.GotoBottom()
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		m.retryIn = msg.RetryIn
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func tableRows(result *model.Result, n int) []table.Row {
	opts := report.Options{Indicators: true}
	visible := report.VisibleRows(result.Rows, n)
	rows := make([]table.Row, len(visible))
	for i, r := range visible {
		rows[i] = table.Row(report.Cells(r, opts))
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(report.TitleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(report.ErrorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	if m.result == nil {
		b.WriteString("\nWaiting for the first refresh...\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		chartWidth := m.width - 14
		if chartWidth > 100 {
			chartWidth = 100
		}
		b.WriteString(report.Chart(m.result, chartWidth, 6))
		b.WriteString(report.LastSignal(m.result))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("r: refresh now • q: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) status() string {
	s := "no data yet"
	if !m.lastRefresh.IsZero() {
		s = fmt.Sprintf("last refresh %s", m.lastRefresh.Format("15:04:05"))
	}
	if m.result != nil {
		s += fmt.Sprintf(" | %s %s %s | %d rows", m.result.Request.Symbol, m.result.Request.Period, m.result.Request.Interval, len(m.result.Rows))
	}
	if m.err != nil && m.retryIn > 0 {
		s += fmt.Sprintf(" | retry in %s", m.retryIn.Round(time.Second))
	}
	return s
}
