package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/neurod3/catalog-cli/internal/ingest"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh-view",
	Short: "Rebuild the unified datasets view",
	Long:  "Recreates the unified_datasets view over the current table contents and prints per-source row counts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "refresh-view: migrate")
		}

		if err := st.RefreshUnifiedView(ctx); err != nil {
			return eris.Wrap(err, "refresh-view")
		}

		counts, err := st.CountsBySource(ctx)
		if err != nil {
			return eris.Wrap(err, "refresh-view: counts")
		}

		total := 0
		reg := ingest.NewRegistry()
		for _, name := range reg.AllNames() {
			total += counts[name]
			fmt.Printf("%-12s %d\n", name, counts[name])
		}
		fmt.Printf("%-12s %d\n", "total", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
