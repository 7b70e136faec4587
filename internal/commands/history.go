package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/regioncost/internal/store"
)

var historyFlags struct {
	id         string
	selections bool
	format     string
	store      storeFlags
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved ranking inputs or final selections",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFlags.id, "id", "", "Only show records for this user id")
	historyCmd.Flags().BoolVar(&historyFlags.selections, "selections", false, "List final selections instead of ranking inputs")
	historyCmd.Flags().StringVar(&historyFlags.format, "format", "text", "Output format: text or json")
	historyCmd.Flags().StringVar(&historyFlags.store.driver, "store", "", "Store driver: file or sqlite")
	historyCmd.Flags().StringSliceVar(&historyFlags.store.paths, "store-path", nil, "Store directories (file) or database path (sqlite)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyFlags.format != "text" && historyFlags.format != "json" {
		return fmt.Errorf("unsupported format: %s (use text or json)", historyFlags.format)
	}

	cfg := loadConfig()
	st, err := historyFlags.store.open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyFlags.selections {
		recs, err := st.Selections(ctx, historyFlags.id)
		if err != nil {
			return err
		}
		for i := range recs {
			recs[i].AccessKey = store.MaskKey(recs[i].AccessKey)
		}
		if historyFlags.format == "json" {
			return writeJSON(out, recs)
		}
		return writeSelections(out, recs)
	}

	recs, err := st.Inputs(ctx, historyFlags.id)
	if err != nil {
		return err
	}
	if historyFlags.format == "json" {
		return writeJSON(out, recs)
	}
	return writeInputs(out, recs)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeInputs(w io.Writer, recs []store.InputRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No saved inputs.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SAVED\tID\tEC2\tTYPE\tS3\tRDS\tTOP REGIONS")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n",
			formatSaved(r.SavedAt), r.ID, r.EC2, r.EC2Type, r.S3, r.RDS, strings.Join(r.Top3Region, ", "))
	}
	return tw.Flush()
}

func writeSelections(w io.Writer, recs []store.SelectionRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No saved selections.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SAVED\tID\tREGION\tREPOSITORY\tACCESS KEY")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			formatSaved(r.SavedAt), r.ID, r.SelectedRegion, r.RepoURL, r.AccessKey)
	}
	return tw.Flush()
}

func formatSaved(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(store.KST).Format("2006-01-02 15:04:05 MST")
}
