package store

import (
	"context"
	"time"

	"github.com/neurod3/catalog-cli/internal/model"
)

// DatasetFilter specifies predicates pushed down to storage when listing the
// catalog snapshot. Source and search narrow the read; modality AND
// semantics are applied by the catalog engine, which is authoritative for
// filtering.
type DatasetFilter struct {
	Source string `json:"source,omitempty"` // "" = all sources
	Search string `json:"search,omitempty"` // title/description substring
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SyncRun is one row of the ingestion sync log.
type SyncRun struct {
	ID          string       `json:"id"`
	Source      model.Source `json:"source"`
	Status      string       `json:"status"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	RowsSynced  int64        `json:"rows_synced"`
	Error       string       `json:"error,omitempty"`
}

// Store defines the persistence interface for the dataset catalog. The
// catalog layer only ever reads; writes come from ingestion (upsert keyed on
// (source, dataset_id); deletion is not modeled).
type Store interface {
	// Datasets
	UpsertDatasets(ctx context.Context, records []model.DatasetRecord) (int64, error)
	ListDatasets(ctx context.Context, filter DatasetFilter) ([]model.DatasetRecord, error)
	CountsBySource(ctx context.Context) (map[model.Source]int, error)

	// Unified view (catalog consumers outside this process read it)
	RefreshUnifiedView(ctx context.Context) error
	HasUnifiedView(ctx context.Context) (bool, error)

	// Sync log
	LastSyncSuccess(ctx context.Context, source model.Source) (*time.Time, error)
	StartSync(ctx context.Context, source model.Source) (string, error)
	CompleteSync(ctx context.Context, syncID string, rowsSynced int64) error
	FailSync(ctx context.Context, syncID string, errMsg string) error
	RecentSyncRuns(ctx context.Context, limit int) ([]SyncRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
