package visualizer

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/conformance/core/report"
)

// WriteReport renders the average fitness of each report as overlaid bar
// series, one chart by department and one by week.
func WriteReport(w io.Writer, reports []report.Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("no report to chart")
	}
	deps := make([][]report.Row, len(reports))
	weeks := make([][]report.Row, len(reports))
	for i, r := range reports {
		deps[i] = r.ByDepartment
		weeks[i] = r.ByWeek
	}
	page := components.NewPage()
	page.PageTitle = "Fitness report"
	page.AddCharts(
		barChart("Average fitness by department", reports, deps),
		barChart("Average fitness by week", reports, weeks),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func barChart(title string, reports []report.Report, rows [][]report.Row) *charts.Bar {
	names := report.Names(rows...)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithYAxisOpts(opts.YAxis{Name: "fitness %", Max: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "500px"}),
	)
	bar.SetXAxis(names)
	for i, r := range reports {
		name := r.Case
		if name == "" {
			name = fmt.Sprintf("results %d", i+1)
		}
		vals := report.Values(names, rows[i])
		data := make([]opts.BarData, len(vals))
		for j, v := range vals {
			data[j] = opts.BarData{Value: math.Round(v*1000) / 10}
		}
		bar.AddSeries(name, data)
	}
	return bar
}
