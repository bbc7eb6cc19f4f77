package catalog

import (
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/neurod3/catalog-cli/internal/model"
)

// QueryResult is one evaluated page of the catalog. Total is the match count
// before pagination; Page is the effective (possibly clamped) page number.
type QueryResult struct {
	Items      []model.DatasetRecord `json:"items,omitempty"`
	Groups     []model.DatasetGroup  `json:"groups,omitempty"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"total_pages"`
}

// matchesFilters reports whether a record survives the source and modality
// filters. Modality selections use AND semantics over comparison keys; a
// record without a modality field never matches a non-empty selection.
func matchesFilters(r model.DatasetRecord, filters model.FilterState) bool {
	if filters.SourceFilter != model.SourceAll && filters.SourceFilter != "" &&
		string(r.Source) != filters.SourceFilter {
		return false
	}
	if len(filters.SelectedModalities) == 0 {
		return true
	}

	keys := make(map[string]struct{})
	for _, tok := range SplitModalities(r.Modality) {
		keys[ModalityKey(tok)] = struct{}{}
	}
	for _, sel := range filters.SelectedModalities {
		if _, ok := keys[ModalityKey(sel)]; !ok {
			return false
		}
	}
	return true
}

// publishedUnix returns the sort key for the published column. Records with
// no parseable timestamp sort as negative infinity so they land at the
// bottom under descending order.
func publishedUnix(r model.DatasetRecord) int64 {
	if r.CreatedAt == nil || r.CreatedAt.IsZero() {
		return math.MinInt64
	}
	return r.CreatedAt.UnixNano()
}

// recordComparator builds the ascending comparator for a sort column. String
// columns use locale-aware collation on the raw field value.
func recordComparator(column model.SortColumn) func(a, b model.DatasetRecord) int {
	coll := collate.New(language.Und)
	switch column {
	case model.SortPublished:
		return func(a, b model.DatasetRecord) int {
			ta, tb := publishedUnix(a), publishedUnix(b)
			switch {
			case ta < tb:
				return -1
			case ta > tb:
				return 1
			}
			return 0
		}
	case model.SortCitations:
		return func(a, b model.DatasetRecord) int {
			return a.Citations - b.Citations
		}
	case model.SortID:
		return func(a, b model.DatasetRecord) int {
			return coll.CompareString(a.ID, b.ID)
		}
	case model.SortSource:
		return func(a, b model.DatasetRecord) int {
			return coll.CompareString(string(a.Source), string(b.Source))
		}
	case model.SortModality:
		return func(a, b model.DatasetRecord) int {
			return coll.CompareString(a.Modality, b.Modality)
		}
	default: // title
		return func(a, b model.DatasetRecord) int {
			return coll.CompareString(a.Title, b.Title)
		}
	}
}

func sortRecords(records []model.DatasetRecord, filters model.FilterState) {
	cmp := recordComparator(filters.SortBy)
	desc := filters.SortOrder != model.SortAsc
	sort.SliceStable(records, func(i, j int) bool {
		c := cmp(records[i], records[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// pageBounds clamps the requested page against the total count and returns
// the effective page, total pages and slice offsets. A page past the end is
// served as the last page rather than an empty one.
func pageBounds(total, page, pageSize int) (effectivePage, totalPages, lo, hi int) {
	if pageSize < 1 {
		pageSize = model.DefaultFilterState().PageSize
	}
	totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	effectivePage = page
	if effectivePage < 1 {
		effectivePage = 1
	}
	if effectivePage > totalPages {
		effectivePage = totalPages
	}
	lo = (effectivePage - 1) * pageSize
	hi = lo + pageSize
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}
	return effectivePage, totalPages, lo, hi
}

// Query evaluates one stateless pass over the snapshot: filter, sort,
// paginate. It performs no I/O and never mutates its input.
func Query(records []model.DatasetRecord, filters model.FilterState) QueryResult {
	var matched []model.DatasetRecord
	for _, r := range records {
		if matchesFilters(r, filters) {
			matched = append(matched, r)
		}
	}
	sortRecords(matched, filters)

	page, totalPages, lo, hi := pageBounds(len(matched), filters.Page, filters.PageSize)
	return QueryResult{
		Items:      matched[lo:hi],
		Total:      len(matched),
		Page:       page,
		TotalPages: totalPages,
	}
}

// QueryGrouped is Query with duplicate clustering applied first. Filtering
// happens before clustering so groups reflect the visible record set; groups
// sort and paginate by their primary record.
func QueryGrouped(records []model.DatasetRecord, filters model.FilterState) QueryResult {
	var matched []model.DatasetRecord
	for _, r := range records {
		if matchesFilters(r, filters) {
			matched = append(matched, r)
		}
	}
	sortRecords(matched, filters)

	groups := Cluster(matched)
	page, totalPages, lo, hi := pageBounds(len(groups), filters.Page, filters.PageSize)
	return QueryResult{
		Groups:     groups[lo:hi],
		Total:      len(groups),
		Page:       page,
		TotalPages: totalPages,
	}
}
