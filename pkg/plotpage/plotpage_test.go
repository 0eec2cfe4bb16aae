package plotpage_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bomeara/bamm/pkg/plotpage"
)

func TestBuildTraceChart(t *testing.T) {
	t.Parallel()

	generations := []int{0, 100, 200, 300}
	series := []plotpage.TraceSeries{
		{Name: "events", Data: []float64{1, 3, 2, 4}},
		{Name: "event rate", Data: []float64{1.0, 0.8, 1.2, 0.9}},
	}

	chart := plotpage.BuildTraceChart("Event traces", "count", generations, series)
	require.NotNil(t, chart)
	require.Len(t, chart.MultiSeries, 2)
	require.Equal(t, "events", chart.MultiSeries[0].Name)
	require.Equal(t, "event rate", chart.MultiSeries[1].Name)
}

func TestBuildTraceChart_NoSeries(t *testing.T) {
	t.Parallel()

	chart := plotpage.BuildTraceChart("Empty", "count", []int{0}, nil)
	require.NotNil(t, chart)
	require.Empty(t, chart.MultiSeries)
}

func TestWritePage(t *testing.T) {
	t.Parallel()

	chart := plotpage.BuildTraceChart("Event count", "count", []int{0, 100}, []plotpage.TraceSeries{
		{Name: "events", Data: []float64{1, 2}},
	})

	var b strings.Builder

	err := plotpage.WritePage(&b, "MCMC traces", chart)
	require.NoError(t, err)

	html := b.String()
	require.Contains(t, html, "<html>")
	require.Contains(t, html, "MCMC traces")
	require.Contains(t, html, "echarts")
}
