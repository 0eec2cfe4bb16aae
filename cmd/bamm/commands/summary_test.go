package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary() runSummary {
	return runSummary{
		Generations:    10000,
		Chains:         2,
		Events:         3,
		EventRate:      0.8125,
		Accepts:        6400,
		Rejects:        3600,
		AcceptanceRate: 0.64,
		ElapsedSeconds: 1.5,
	}
}

func TestWriteSummaryYAML(t *testing.T) {
	t.Parallel()

	var b strings.Builder

	err := writeSummary(&b, summaryFormatYAML, testSummary(), true)
	require.NoError(t, err)

	out := b.String()
	assert.Contains(t, out, "generations: 10000")
	assert.Contains(t, out, "events: 3")
	assert.Contains(t, out, "event_rate: 0.8125")
	assert.Contains(t, out, "acceptance_rate: 0.64")
}

func TestWriteSummaryTable(t *testing.T) {
	t.Parallel()

	var b strings.Builder

	err := writeSummary(&b, summaryFormatTable, testSummary(), true)
	require.NoError(t, err)

	out := b.String()
	assert.Contains(t, out, "run complete: 10,000 generations across 2 chain(s)")
	assert.Contains(t, out, "Events on tree")
	assert.Contains(t, out, "6,400")
	assert.Contains(t, out, "64.00%")
}

func TestTraceDataSample(t *testing.T) {
	t.Parallel()

	td := traceData{}
	td.sample(100, 2, 1.5)
	td.sample(200, 3, 1.25)

	assert.Equal(t, []int{100, 200}, td.generations)
	assert.Equal(t, []float64{2, 3}, td.events)
	assert.Equal(t, []float64{1.5, 1.25}, td.rates)
}

func TestWriteTracePlot(t *testing.T) {
	t.Parallel()

	td := traceData{}
	td.sample(100, 1, 1.0)
	td.sample(200, 2, 0.9)

	path := filepath.Join(t.TempDir(), "trace.html")

	err := writeTracePlot(path, td)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "echarts")
	assert.Contains(t, string(data), "MCMC traces")
}
