package model

import "github.com/rotisserie/eris"

// SourceAll matches every source.
const SourceAll = "all"

// SortColumn enumerates the sortable catalog columns.
type SortColumn string

const (
	SortPublished SortColumn = "published"
	SortTitle     SortColumn = "title"
	SortID        SortColumn = "id"
	SortSource    SortColumn = "source"
	SortModality  SortColumn = "modality"
	SortCitations SortColumn = "citations"
)

// ParseSortColumn validates a raw sort column name.
func ParseSortColumn(s string) (SortColumn, error) {
	switch SortColumn(s) {
	case SortPublished, SortTitle, SortID, SortSource, SortModality, SortCitations:
		return SortColumn(s), nil
	}
	return "", eris.Errorf("unknown sort column: %q (valid: published, title, id, source, modality, citations)", s)
}

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder validates a raw sort order.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case SortAsc, SortDesc:
		return SortOrder(s), nil
	}
	return "", eris.Errorf("unknown sort order: %q (valid: asc, desc)", s)
}

// FilterState is the caller-supplied view state for one catalog query.
// It is transient; nothing here persists across requests.
type FilterState struct {
	SourceFilter       string     `json:"source_filter"` // SourceAll or a Source value
	SelectedModalities []string   `json:"selected_modalities"`
	SortBy             SortColumn `json:"sort_by"`
	SortOrder          SortOrder  `json:"sort_order"`
	Page               int        `json:"page"` // 1-based
	PageSize           int        `json:"page_size"`
}

// DefaultFilterState returns the initial view state: all sources, no
// modality constraint, citations descending, first page.
func DefaultFilterState() FilterState {
	return FilterState{
		SourceFilter: SourceAll,
		SortBy:       SortCitations,
		SortOrder:    SortDesc,
		Page:         1,
		PageSize:     25,
	}
}

// NextSort returns the sort state after the user selects a column: selecting
// the current column toggles direction, selecting a new column resets to
// descending.
func NextSort(current FilterState, column SortColumn) (SortColumn, SortOrder) {
	if current.SortBy == column {
		if current.SortOrder == SortDesc {
			return column, SortAsc
		}
		return column, SortDesc
	}
	return column, SortDesc
}

// FacetStats reports match counts broken down by facet dimension, computed
// over the set remaining after the active filters.
type FacetStats struct {
	Total      int            `json:"total"`
	BySource   map[Source]int `json:"by_source"`
	ByModality map[string]int `json:"by_modality"`
}
