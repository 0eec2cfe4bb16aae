package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/bomeara/bamm/pkg/plotpage"
)

// Supported summary formats.
const (
	summaryFormatTable = "table"
	summaryFormatYAML  = "yaml"
)

const tracePlotPerm = 0o600

// runSummary is the end-of-run report for the cold chain.
type runSummary struct {
	Generations    int     `yaml:"generations"`
	Chains         int     `yaml:"chains"`
	Events         int     `yaml:"events"`
	EventRate      float64 `yaml:"event_rate"`
	Accepts        int     `yaml:"accepts"`
	Rejects        int     `yaml:"rejects"`
	AcceptanceRate float64 `yaml:"acceptance_rate"`

	// Posterior trace statistics over the sampled generations.
	MeanEvents      float64 `yaml:"mean_events"`
	StdDevEvents    float64 `yaml:"stddev_events"`
	MedianEventRate float64 `yaml:"median_event_rate"`

	ElapsedSeconds float64 `yaml:"elapsed_seconds"`
}

// traceData accumulates sampled chain state for plotting.
type traceData struct {
	generations []int
	events      []float64
	rates       []float64
}

func (td *traceData) sample(gen, eventCount int, eventRate float64) {
	td.generations = append(td.generations, gen)
	td.events = append(td.events, float64(eventCount))
	td.rates = append(td.rates, eventRate)
}

func writeSummary(w io.Writer, format string, s runSummary, noColor bool) error {
	if format == summaryFormatYAML {
		return writeSummaryYAML(w, s)
	}

	writeSummaryTable(w, s, noColor)

	return nil
}

func writeSummaryYAML(w io.Writer, s runSummary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

func writeSummaryTable(w io.Writer, s runSummary, noColor bool) {
	status := color.New(color.FgGreen, color.Bold)
	if noColor {
		status.DisableColor()
	}

	status.Fprintf(w, "run complete: %s generations across %d chain(s)\n",
		humanize.Comma(int64(s.Generations)), s.Chains)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRow(table.Row{"Generations", humanize.Comma(int64(s.Generations))})
	tbl.AppendRow(table.Row{"Events on tree", s.Events})
	tbl.AppendRow(table.Row{"Event rate", fmt.Sprintf("%.4f", s.EventRate)})
	tbl.AppendRow(table.Row{"Accepted proposals", humanize.Comma(int64(s.Accepts))})
	tbl.AppendRow(table.Row{"Rejected proposals", humanize.Comma(int64(s.Rejects))})
	tbl.AppendRow(table.Row{"Acceptance rate", fmt.Sprintf("%.2f%%", s.AcceptanceRate*percentScale)})
	tbl.AppendRow(table.Row{"Mean events (trace)", fmt.Sprintf("%.2f ± %.2f", s.MeanEvents, s.StdDevEvents)})
	tbl.AppendRow(table.Row{"Median event rate (trace)", fmt.Sprintf("%.4f", s.MedianEventRate)})
	tbl.AppendRow(table.Row{"Elapsed", fmt.Sprintf("%.2fs", s.ElapsedSeconds)})
	tbl.Render()
}

const percentScale = 100

// writeTracePlot renders the sampled traces as a standalone HTML page.
func writeTracePlot(path string, td traceData) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, tracePlotPerm)
	if err != nil {
		return fmt.Errorf("create trace plot: %w", err)
	}
	defer f.Close()

	eventChart := plotpage.BuildTraceChart("Events on tree", "count", td.generations, []plotpage.TraceSeries{
		{Name: "events", Data: td.events},
	})
	rateChart := plotpage.BuildTraceChart("Event rate", "rate", td.generations, []plotpage.TraceSeries{
		{Name: "event rate", Data: td.rates},
	})

	return plotpage.WritePage(f, "MCMC traces", eventChart, rateChart)
}
