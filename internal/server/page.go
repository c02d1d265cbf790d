package server

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/andrea060103/bot-trading-simulazione/internal/collector"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
	"github.com/andrea060103/bot-trading-simulazione/internal/report"
)

const chartWidth, chartHeight = 900, 320

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Trading simulator</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; }
aside { width: 220px; padding: 1rem; background: #f3f3f3; min-height: 100vh; }
main { flex: 1; padding: 1rem 2rem; }
label { display: block; margin-top: .8rem; font-size: .9rem; }
select, input { width: 100%; }
table { border-collapse: collapse; font-size: .85rem; }
th, td { padding: 2px 8px; text-align: right; border-bottom: 1px solid #ddd; }
td.BUY { background: #b7f5b7; }
td.SELL { background: #f5b7b7; }
.error { color: #b00020; font-weight: bold; }
.last { border: 1px solid #ccc; border-radius: 6px; padding: .5rem 1rem; display: inline-block; }
</style>
{{if .Chart}}<script src="{{.ChartAsset}}"></script>{{end}}
</head>
<body>
<aside>
<form method="get" action="/">
<label>Symbol
<select name="symbol">{{range .Symbols}}<option{{if eq . $.Request.Symbol}} selected{{end}}>{{.}}</option>{{end}}</select>
</label>
<label>Period
<select name="period">{{range .Periods}}<option{{if eq . $.Request.Period}} selected{{end}}>{{.}}</option>{{end}}</select>
</label>
<label>Interval
<select name="interval">{{range .Intervals}}<option{{if eq . $.Request.Interval}} selected{{end}}>{{.}}</option>{{end}}</select>
</label>
<label>Initial balance (USD)
<input type="number" name="balance" min="0" step="any" value="{{.Balance}}">
</label>
<p><button type="submit">Simulate</button></p>
</form>
</aside>
<main>
<h1>Trading simulator: {{.Request.Symbol}}</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{else}}
<h2>Signal table</h2>
<table>
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .Cells}}<td{{if .Label}} class="{{.Label}}"{{end}}>{{.Text}}</td>{{end}}</tr>
{{end}}</table>
<h2>Price and portfolio</h2>
{{.Chart}}
<h2>Last signal</h2>
<div class="last">
<p>Date: {{.Last.Date}}</p>
<p>Price: {{.Last.Price}}</p>
<p>Label: <b>{{.Last.Label}}</b></p>
<p>Portfolio: {{.Last.Value}} USD</p>
<p>Profit: {{.Last.Profit}}</p>
</div>
<p>{{.Stats}}</p>
{{end}}
</main>
</body>
</html>
`))

type cell struct {
	Text  string
	Label string
}

type pageRow struct {
	Cells []cell
}

type lastSignal struct {
	Date   string
	Price  string
	Label  string
	Value  string
	Profit string
}

type pageData struct {
	Symbols    []string
	Periods    []string
	Intervals  []string
	Request    model.Request
	Balance    string
	Error      string
	Headers    []string
	Rows       []pageRow
	Chart      template.HTML
	ChartAsset string
	Last       lastSignal
	Stats      string
}

func (s *Server) newPage(req model.Request) *pageData {
	symbols := s.market.Symbols
	if !slices.Contains(symbols, req.Symbol) {
		symbols = append([]string{req.Symbol}, symbols...)
	}
	return &pageData{
		Symbols:   symbols,
		Periods:   collector.Periods(),
		Intervals: collector.Intervals(),
		Request:   req,
		Balance:   report.FormatFloat(req.InitialBalance, 2),
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	page := s.newPage(req)
	if err != nil {
		page.Error = err.Error()
		s.renderPage(w, http.StatusBadRequest, page)
		return
	}

	result, err := s.run(r, req)
	switch {
	case errors.Is(err, collector.ErrNoData):
		// Only the message, no table or chart.
		page.Error = collector.ErrNoData.Error()
		s.renderPage(w, http.StatusNotFound, page)
		return
	case err != nil:
		page.Error = err.Error()
		s.renderPage(w, http.StatusBadGateway, page)
		return
	}

	opts := report.Options{MaxRows: s.rows, Indicators: true}
	page.Headers = report.Headers(opts)
	labelCol := len(page.Headers) - 3
	for _, row := range report.VisibleRows(result.Rows, opts.MaxRows) {
		texts := report.Cells(row, opts)
		cells := make([]cell, len(texts))
		for i, t := range texts {
			cells[i] = cell{Text: t}
			if i == labelCol {
				cells[i].Label = row.Label.String()
			}
		}
		page.Rows = append(page.Rows, pageRow{Cells: cells})
	}
	if snippet, ok := report.WebChart(result, chartWidth, chartHeight); ok {
		// The snippet carries only numbers, timestamps and fixed series names.
		page.Chart = template.HTML(snippet.Element + snippet.Script)
		page.ChartAsset = report.EChartsAsset
	}
	last := result.Summary
	page.Last = lastSignal{
		Date:   last.Last.Time.Format(report.TimeLayout),
		Price:  report.FormatFloat(last.Last.Price, 2),
		Label:  last.Last.Label.String(),
		Value:  report.FormatFloat(last.FinalValue, 2),
		Profit: report.FormatPct(last.ProfitPct),
	}
	page.Stats = report.Stats(result)
	s.renderPage(w, http.StatusOK, page)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page *pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "render page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
