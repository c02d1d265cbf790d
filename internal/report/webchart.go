package report

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// EChartsAsset is the script the web page loads before any chart snippet.
const EChartsAsset = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

// echarts draws a gap for "-".
const missingPoint = "-"

// LineChart builds the web chart: price and MA on the left axis, the
// portfolio value on the right axis.
func LineChart(result *model.Result, width, height int) *charts.Line {
	price, ma, portfolio := ChartSeries(result)
	times := make([]string, len(result.Rows))
	for i, r := range result.Rows {
		times[i] = r.Time.Format(TimeLayout)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", width),
			Height: fmt.Sprintf("%dpx", height),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price", Min: "dataMin", Max: "dataMax"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Portfolio", Min: "dataMin", Max: "dataMax"})
	line.SetXAxis(times).
		AddSeries("Price", lineData(price)).
		AddSeries("MA", lineData(ma)).
		AddSeries("Portfolio", lineData(portfolio), charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))
	return line
}

// WebChart renders LineChart as an element and script pair for embedding.
// An empty result has no chart.
func WebChart(result *model.Result, width, height int) (render.ChartSnippet, bool) {
	if len(result.Rows) == 0 || width <= 0 || height <= 0 {
		return render.ChartSnippet{}, false
	}
	return LineChart(result, width, height).RenderSnippet(), true
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = opts.LineData{Value: missingPoint}
			continue
		}
		out[i] = opts.LineData{Value: v}
	}
	return out
}
