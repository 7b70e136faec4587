package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Generate writes human-readable terminal output.
func (r *TextReporter) Generate(data Data) error {
	w := &errWriter{w: r.Writer}

	w.println("regioncost — Region Cost Ranking")
	w.println(strings.Repeat("=", 32))
	w.println("")
	w.printf("Request: %d x EC2 %s, %d x S3, %d x RDS (s3 convention: %s)\n\n",
		data.Request.EC2Count, data.Request.EC2Type, data.Request.S3Count, data.Request.RDSCount, data.Convention)

	if len(data.Ranking) == 0 {
		w.println("No regions in pricing table.")
		w.println("")
		writeTextSummary(w, data)
		return w.err
	}

	cheapest := data.Ranking[0]
	w.printf("Cheapest region: %s\n\n", color.GreenString("%s ($%s)", cheapest.Region, cheapest.Total.StringFixed(4)))

	w.printf("Top %d cheapest regions\n", len(data.Top))
	for i, c := range data.Top {
		w.printf("  %d. %s ($%s)\n", i+1, c.Region, c.Total.StringFixed(4))
	}
	w.println("")

	tw := tabwriter.NewWriter(r.Writer, 0, 4, 2, ' ', 0)
	tw2 := &errWriter{w: tw}
	tw2.printf("RANK\tREGION\tTOTAL ($)\n")
	tw2.printf("----\t------\t---------\n")
	for i, c := range data.Ranking {
		tw2.printf("%d\t%s\t$%s\n", i+1, c.Region, c.Total.StringFixed(4))
	}
	if tw2.err != nil {
		return tw2.err
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	w.println("")
	writeTextSummary(w, data)
	return w.err
}

func writeTextSummary(w *errWriter, data Data) {
	w.println("Summary")
	w.println("-------")
	w.printf("Regions ranked:   %d\n", data.Summary.RegionsRanked)
	if data.Summary.Cheapest != "" {
		w.printf("Cheapest:         %s ($%s)\n", data.Summary.Cheapest, data.Summary.CheapestTotal.StringFixed(4))
		w.printf("Most expensive:   %s ($%s)\n", data.Summary.MostExpensive, data.Summary.MostExpensiveTotal.StringFixed(4))
		w.printf("Spread:           $%s\n", data.Summary.Spread.StringFixed(4))
	}
	if data.Source != "" {
		w.printf("Pricing source:   %s\n", data.Source)
	}

	if len(data.Warnings) > 0 {
		w.printf("\nWarnings (%d):\n", len(data.Warnings))
		for _, e := range data.Warnings {
			w.printf("  - %s\n", e)
		}
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
