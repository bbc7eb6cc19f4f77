package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neurod3/catalog-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync history",
	Long:  "Displays the sync log for all upstream catalogs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "status: migrate")
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.RecentSyncRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if len(runs) == 0 {
			zap.L().Info("no sync runs found, run 'sync' to start syncing sources")
			return nil
		}

		formatSyncRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	rootCmd.AddCommand(statusCmd)
}

// formatSyncRuns writes a tabular representation of sync runs to w.
func formatSyncRuns(out io.Writer, runs []store.SyncRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t--------\t----\t-----")

	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			truncate(r.ID, 8),
			r.Source,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.RowsSynced,
			truncate(r.Error, 60),
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
