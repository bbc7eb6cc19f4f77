package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neurod3/catalog-cli/internal/catalog"
	"github.com/neurod3/catalog-cli/internal/model"
	"github.com/neurod3/catalog-cli/internal/store"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Query the dataset catalog",
	Long:  "Lists datasets from the local catalog with filtering, sorting, and optional duplicate grouping.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "datasets: migrate")
		}

		filters, err := parseDatasetFilters(cmd)
		if err != nil {
			return err
		}
		search, _ := cmd.Flags().GetString("search")

		// Source and modality filtering happen catalog-side so facet counts
		// and filter reconciliation see the whole snapshot.
		records, err := st.ListDatasets(ctx, store.DatasetFilter{Search: search})
		if err != nil {
			return eris.Wrap(err, "datasets: list")
		}

		// Drop a source selection the snapshot can no longer satisfy, e.g.
		// after a re-sync that returned nothing for that source.
		stats := catalog.ComputeFacets(records, model.DefaultFilterState())
		if reconciled := catalog.ReconcileFilters(filters, stats); reconciled.SourceFilter != filters.SourceFilter {
			zap.L().Warn("source not present in catalog, showing all sources",
				zap.String("source", filters.SourceFilter))
			filters = reconciled
		}

		grouped, _ := cmd.Flags().GetBool("group")
		asJSON, _ := cmd.Flags().GetBool("json")

		var result catalog.QueryResult
		if grouped {
			result = catalog.QueryGrouped(records, filters)
		} else {
			result = catalog.Query(records, filters)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		if grouped {
			formatGroups(os.Stdout, result)
		} else {
			formatDatasets(os.Stdout, result)
		}
		return nil
	},
}

func init() {
	datasetsCmd.Flags().String("source", model.SourceAll, "filter by source (DANDI, Kaggle, OpenNeuro, PhysioNet)")
	datasetsCmd.Flags().StringSlice("modality", nil, "filter by modality, repeatable; all must match")
	datasetsCmd.Flags().String("search", "", "title/description substring match")
	datasetsCmd.Flags().String("sort-by", string(model.SortCitations), "sort column: published, title, id, source, modality, citations")
	datasetsCmd.Flags().String("sort-order", string(model.SortDesc), "sort order: asc, desc")
	datasetsCmd.Flags().Int("page", 1, "1-based page number")
	datasetsCmd.Flags().Int("page-size", 25, "results per page")
	datasetsCmd.Flags().Bool("group", false, "cluster near-duplicate datasets")
	datasetsCmd.Flags().Bool("json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(datasetsCmd)
}

// parseDatasetFilters builds a FilterState from the cobra flags.
func parseDatasetFilters(cmd *cobra.Command) (model.FilterState, error) {
	filters := model.DefaultFilterState()

	source, _ := cmd.Flags().GetString("source")
	if source != "" && source != model.SourceAll {
		parsed, err := model.ParseSource(source)
		if err != nil {
			return model.FilterState{}, err
		}
		filters.SourceFilter = string(parsed)
	}

	if modalities, _ := cmd.Flags().GetStringSlice("modality"); len(modalities) > 0 {
		filters.SelectedModalities = modalities
	}

	sortBy, _ := cmd.Flags().GetString("sort-by")
	column, err := model.ParseSortColumn(sortBy)
	if err != nil {
		return model.FilterState{}, err
	}
	filters.SortBy = column

	sortOrder, _ := cmd.Flags().GetString("sort-order")
	order, err := model.ParseSortOrder(sortOrder)
	if err != nil {
		return model.FilterState{}, err
	}
	filters.SortOrder = order

	page, _ := cmd.Flags().GetInt("page")
	if page > 0 {
		filters.Page = page
	}
	pageSize, _ := cmd.Flags().GetInt("page-size")
	if pageSize > 0 {
		filters.PageSize = pageSize
	}

	return filters, nil
}

// formatDatasets writes a tabular listing of a flat query result.
func formatDatasets(out io.Writer, result catalog.QueryResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tID\tTITLE\tMODALITY\tCITATIONS")
	_, _ = fmt.Fprintln(w, "------\t--\t-----\t--------\t---------")

	for _, r := range result.Items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			r.Source, r.ID, truncate(r.Title, 50), truncate(r.Modality, 30), r.Citations)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d datasets, page %d of %d\n", result.Total, result.Page, result.TotalPages)
}

// formatGroups writes a tabular listing of a grouped query result. Alternates
// are indented under their primary.
func formatGroups(out io.Writer, result catalog.QueryResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tID\tTITLE\tMODALITY\tCITATIONS")
	_, _ = fmt.Fprintln(w, "------\t--\t-----\t--------\t---------")

	for _, g := range result.Groups {
		p := g.Primary
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			p.Source, p.ID, truncate(p.Title, 50), truncate(p.Modality, 30), p.Citations)
		for _, alt := range g.Alternates {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%d\n",
				alt.Source, alt.ID, truncate(alt.Title, 48), truncate(alt.Modality, 30), alt.Citations)
		}
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d groups, page %d of %d\n", result.Total, result.Page, result.TotalPages)
}
