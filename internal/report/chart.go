package report

import (
	"math"
	"slices"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// ChartSeries extracts the price, moving average and portfolio columns.
// Undefined averages are NaN.
func ChartSeries(result *model.Result) (price, ma, portfolio []float64) {
	n := len(result.Rows)
	price = make([]float64, n)
	ma = make([]float64, n)
	portfolio = make([]float64, n)
	for i, r := range result.Rows {
		price[i] = r.Price
		ma[i] = r.Features.MA.TakeOr(math.NaN())
		portfolio[i] = r.Value
	}
	return price, ma, portfolio
}

// Chart renders two stacked terminal plots: price with its moving average,
// then the portfolio value. height is the row count of each plot.
func Chart(result *model.Result, width, height int) string {
	if len(result.Rows) == 0 || width < 10 || height < 3 {
		return ""
	}
	price, ma, portfolio := ChartSeries(result)

	series := [][]float64{finiteOrNaN(price)}
	legends := []string{"Price"}
	colors := []asciigraph.AnsiColor{asciigraph.Blue}
	if hasFinite(ma) {
		series = append(series, finiteOrNaN(ma))
		legends = append(legends, "MA")
		colors = append(colors, asciigraph.Orange)
	}

	var b strings.Builder
	if hasFinite(price) {
		b.WriteString(asciigraph.PlotMany(series,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Precision(2),
			asciigraph.SeriesColors(colors...),
			asciigraph.SeriesLegends(legends...),
			asciigraph.Caption(result.Request.Symbol)))
		b.WriteString("\n\n")
	}
	if hasFinite(portfolio) {
		b.WriteString(asciigraph.Plot(finiteOrNaN(portfolio),
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Precision(2),
			asciigraph.SeriesColors(asciigraph.Green),
			asciigraph.SeriesLegends("Portfolio")))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString(result.Rows[0].Time.Format(TimeLayout))
	b.WriteString(" → ")
	b.WriteString(result.Rows[len(result.Rows)-1].Time.Format(TimeLayout))
	b.WriteByte('\n')
	return b.String()
}

// finiteOrNaN maps infinities to NaN, which the plot leaves blank.
func finiteOrNaN(values []float64) []float64 {
	out := slices.Clone(values)
	for i, v := range out {
		if math.IsInf(v, 0) {
			out[i] = math.NaN()
		}
	}
	return out
}

func hasFinite(values []float64) bool {
	return slices.ContainsFunc(values, func(v float64) bool {
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})
}
