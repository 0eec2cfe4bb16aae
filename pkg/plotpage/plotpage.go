// Package plotpage renders MCMC trace diagnostics as a standalone HTML
// page of go-echarts charts.
package plotpage

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "500px"

	dataZoomEndPercent = 100
)

// TraceSeries is one sampled quantity plotted against generations.
type TraceSeries struct {
	Name string
	Data []float64
}

// BuildTraceChart constructs a line chart of the given series over the
// sampled generations.
func BuildTraceChart(title, yAxisLabel string, generations []int, series []TraceSeries) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: dataZoomEndPercent}),
		charts.WithXAxisOpts(opts.XAxis{Name: "generation"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yAxisLabel}),
		charts.WithLegendOpts(opts.Legend{Top: "30"}),
	)

	labels := make([]string, len(generations))
	for i, g := range generations {
		labels[i] = fmt.Sprintf("%d", g)
	}

	line.SetXAxis(labels)

	for _, s := range series {
		lineData := make([]opts.LineData, len(s.Data))
		for i, v := range s.Data {
			lineData[i] = opts.LineData{Value: v}
		}

		line.AddSeries(s.Name, lineData)
	}

	return line
}

// WritePage lays the charts out on a single page and renders it to w.
func WritePage(w io.Writer, title string, chartList ...components.Charter) error {
	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageCenterLayout)
	page.AddCharts(chartList...)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render trace page: %w", err)
	}

	return nil
}
