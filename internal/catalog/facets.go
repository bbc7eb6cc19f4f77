package catalog

import (
	"sort"

	"github.com/neurod3/catalog-cli/internal/model"
)

// ComputeFacets counts the records that survive the active filters, broken
// down by source and by canonical modality token. A record with N modality
// tokens contributes to N modality buckets. Zero-count options never appear
// in the maps, so the maps double as the available-options lists.
func ComputeFacets(records []model.DatasetRecord, filters model.FilterState) model.FacetStats {
	stats := model.FacetStats{
		BySource:   make(map[model.Source]int),
		ByModality: make(map[string]int),
	}

	for _, r := range records {
		if !matchesFilters(r, filters) {
			continue
		}
		stats.Total++
		stats.BySource[r.Source]++

		seen := make(map[string]struct{})
		for _, tok := range SplitModalities(r.Modality) {
			key := ModalityKey(tok)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			stats.ByModality[key]++
		}
	}

	return stats
}

// AvailableSources lists the sources with a strictly positive count, in
// canonical source order.
func AvailableSources(stats model.FacetStats) []model.Source {
	var out []model.Source
	for _, s := range model.Sources {
		if stats.BySource[s] > 0 {
			out = append(out, s)
		}
	}
	return out
}

// AvailableModalities lists the canonical modality keys with a strictly
// positive count, sorted for stable presentation.
func AvailableModalities(stats model.FacetStats) []string {
	out := make([]string, 0, len(stats.ByModality))
	for key := range stats.ByModality {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// ReconcileFilters adjusts a filter state against fresh facet counts. A
// source filter whose count dropped to zero resets to "all"; selected
// modalities are left alone even when their count is zero — a stale modality
// selection stays sticky. The asymmetry is intentional observed behavior,
// kept pending product review.
func ReconcileFilters(filters model.FilterState, stats model.FacetStats) model.FilterState {
	if filters.SourceFilter == model.SourceAll {
		return filters
	}
	for _, s := range AvailableSources(stats) {
		if string(s) == filters.SourceFilter {
			return filters
		}
	}
	filters.SourceFilter = model.SourceAll
	return filters
}
