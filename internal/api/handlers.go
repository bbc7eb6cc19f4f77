package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/neurod3/catalog-cli/internal/catalog"
	"github.com/neurod3/catalog-cli/internal/model"
	"github.com/neurod3/catalog-cli/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "catalog API is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.store.Ping(ctx); err != nil {
		zap.L().Error("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	payload := map[string]any{
		"status":   "healthy",
		"database": "connected",
	}

	hasView, err := s.store.HasUnifiedView(ctx)
	switch {
	case err != nil:
		zap.L().Warn("unified view check failed", zap.Error(err))
		payload["unified_datasets_view"] = "unknown"
	case hasView:
		payload["unified_datasets_view"] = "exists"
		if counts, err := s.store.CountsBySource(ctx); err == nil {
			var total int
			for _, n := range counts {
				total += n
			}
			payload["view_row_count"] = total
		}
	default:
		payload["unified_datasets_view"] = "missing"
	}

	respondJSON(w, http.StatusOK, payload)
}

// datasetFiltersFromQuery builds the catalog view state and the storage
// pushdown from request parameters. The second return is the client error
// message, empty when the request is valid.
func datasetFiltersFromQuery(r *http.Request) (model.FilterState, store.DatasetFilter, string) {
	q := r.URL.Query()
	filters := model.DefaultFilterState()
	var pushdown store.DatasetFilter

	if raw := q.Get("source"); raw != "" && raw != model.SourceAll {
		src, err := model.ParseSource(raw)
		if err != nil {
			return filters, pushdown, "invalid source: " + raw
		}
		filters.SourceFilter = string(src)
		pushdown.Source = string(src)
	}

	filters.SelectedModalities = append(filters.SelectedModalities, q["modality"]...)
	pushdown.Search = q.Get("search")

	if raw := q.Get("sort_by"); raw != "" {
		col, err := model.ParseSortColumn(raw)
		if err != nil {
			return filters, pushdown, "invalid sort_by: " + raw
		}
		filters.SortBy = col
	}
	if raw := q.Get("sort_order"); raw != "" {
		ord, err := model.ParseSortOrder(raw)
		if err != nil {
			return filters, pushdown, "invalid sort_order: " + raw
		}
		filters.SortOrder = ord
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filters, pushdown, "invalid page: " + raw
		}
		filters.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return filters, pushdown, "invalid page_size: " + raw
		}
		filters.PageSize = size
	}

	return filters, pushdown, ""
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters, pushdown, clientErr := datasetFiltersFromQuery(r)
	if clientErr != "" {
		respondError(w, http.StatusBadRequest, clientErr)
		return
	}

	records, err := s.store.ListDatasets(ctx, pushdown)
	if err != nil {
		zap.L().Error("list datasets", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	facets := catalog.ComputeFacets(records, filters)

	payload := map[string]any{
		"facets": facets,
	}
	if r.URL.Query().Get("group") == "true" {
		result := catalog.QueryGrouped(records, filters)
		payload["groups"] = result.Groups
		payload["count"] = result.Total
		payload["page"] = result.Page
		payload["total_pages"] = result.TotalPages
	} else {
		result := catalog.Query(records, filters)
		payload["datasets"] = result.Items
		payload["count"] = result.Total
		payload["page"] = result.Page
		payload["total_pages"] = result.TotalPages
	}

	respondJSON(w, http.StatusOK, payload)
}

// statsFiltersFromQuery builds the stats view state and storage pushdown.
// Stats accepts the source and modality filters only; the second return is
// the client error message, empty when the request is valid.
func statsFiltersFromQuery(r *http.Request) (model.FilterState, store.DatasetFilter, string) {
	q := r.URL.Query()
	filters := model.DefaultFilterState()
	var pushdown store.DatasetFilter

	if raw := q.Get("source"); raw != "" && raw != model.SourceAll {
		src, err := model.ParseSource(raw)
		if err != nil {
			return filters, pushdown, "invalid source: " + raw
		}
		filters.SourceFilter = string(src)
		pushdown.Source = string(src)
	}

	filters.SelectedModalities = append(filters.SelectedModalities, q["modality"]...)

	return filters, pushdown, ""
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters, pushdown, clientErr := statsFiltersFromQuery(r)
	if clientErr != "" {
		respondError(w, http.StatusBadRequest, clientErr)
		return
	}

	records, err := s.store.ListDatasets(ctx, pushdown)
	if err != nil {
		zap.L().Error("list datasets for stats", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	facets := catalog.ComputeFacets(records, filters)

	respondJSON(w, http.StatusOK, map[string]any{
		"total":       facets.Total,
		"by_source":   facets.BySource,
		"by_modality": facets.ByModality,
	})
}

func (s *Server) handleSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit: "+raw)
			return
		}
		limit = n
	}

	runs, err := s.store.RecentSyncRuns(r.Context(), limit)
	if err != nil {
		zap.L().Error("recent sync runs", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if runs == nil {
		runs = []store.SyncRun{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRefreshView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.store.RefreshUnifiedView(ctx); err != nil {
		zap.L().Error("refresh unified view", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	counts, err := s.store.CountsBySource(ctx)
	if err != nil {
		zap.L().Error("counts by source", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	var total int
	for _, n := range counts {
		total += n
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"total_rows":     total,
		"rows_by_source": counts,
	})
}
