package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neurod3/catalog-cli/internal/fetcher"
	"github.com/neurod3/catalog-cli/internal/ingest"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync datasets from upstream catalogs",
	Long: `Sync dataset listings into the neuroscience_datasets table.

By default, syncs every source that is due per its cadence (daily for
DANDI and OpenNeuro, weekly for Kaggle and PhysioNet).
Use --sources to restrict to specific sources, --force to ignore cadence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "sync: migrate")
		}

		opts, err := parseSyncOpts(cmd)
		if err != nil {
			return err
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Ingest.UserAgent,
			Timeout:    time.Duration(cfg.Ingest.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Ingest.MaxRetries,
		})

		reg := buildRegistry(cmd)
		engine := ingest.NewEngine(st, f, reg, cfg.Ingest.Concurrency)

		log.Info("starting sync",
			zap.Strings("sources", opts.Sources),
			zap.Bool("force", opts.Force),
		)

		stats, err := engine.Run(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		fmt.Printf("Sync complete: %d synced, %d skipped, %d failed, %d rows\n",
			stats.Synced, stats.Skipped, stats.Failed, stats.Rows)
		if stats.Failed > 0 {
			return eris.Errorf("sync: %d source(s) failed", stats.Failed)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("sources", "", "comma-separated source names (e.g., DANDI,OpenNeuro)")
	syncCmd.Flags().Bool("force", false, "ignore cadence scheduling")
	syncCmd.Flags().Bool("skip-enrich", false, "skip per-dataset DANDI version enrichment")
	rootCmd.AddCommand(syncCmd)
}

// parseSyncOpts extracts ingest.RunOpts from the cobra command flags.
func parseSyncOpts(cmd *cobra.Command) (ingest.RunOpts, error) {
	sourcesStr, _ := cmd.Flags().GetString("sources")
	force, _ := cmd.Flags().GetBool("force")

	opts := ingest.RunOpts{Force: force}

	if sourcesStr != "" {
		opts.Sources = strings.Split(sourcesStr, ",")
		for i := range opts.Sources {
			opts.Sources[i] = strings.TrimSpace(opts.Sources[i])
		}
	}

	return opts, nil
}

// buildRegistry applies ingest config and flags to the default source set.
func buildRegistry(cmd *cobra.Command) *ingest.Registry {
	skipEnrich, _ := cmd.Flags().GetBool("skip-enrich")

	reg := ingest.NewRegistry()
	for _, s := range reg.All() {
		switch src := s.(type) {
		case *ingest.DANDI:
			if cfg.Ingest.MaxDatasets > 0 {
				src.MaxDatasets = cfg.Ingest.MaxDatasets
			}
			src.SkipEnrich = skipEnrich
		case *ingest.OpenNeuro:
			if cfg.Ingest.MaxDatasets > 0 {
				src.MaxDatasets = cfg.Ingest.MaxDatasets
			}
		}
	}
	return reg
}
