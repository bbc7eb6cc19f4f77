package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/neurod3/catalog-cli/internal/db"
	"github.com/neurod3/catalog-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// hottest store operations.
var preparedStatements = map[string]string{
	"get_last_sync":    `SELECT started_at FROM sync_log WHERE source = $1 AND status = 'complete' ORDER BY started_at DESC LIMIT 1`,
	"start_sync":       `INSERT INTO sync_log (id, source, status, started_at) VALUES ($1, $2, 'running', $3)`,
	"counts_by_source": `SELECT source, COUNT(*) FROM neuroscience_datasets GROUP BY source`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// Schema follows the original catalog table: upsert keyed on
// (source, dataset_id), citations ordered index for the default sort.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS neuroscience_datasets (
	id         SERIAL PRIMARY KEY,
	source     VARCHAR(50) NOT NULL,
	dataset_id VARCHAR(255) NOT NULL,
	title      TEXT NOT NULL,
	modality   VARCHAR(255),
	citations  INTEGER NOT NULL DEFAULT 0,
	url        TEXT NOT NULL DEFAULT '',
	description TEXT,
	created_at TIMESTAMPTZ DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, dataset_id)
);

CREATE INDEX IF NOT EXISTS idx_datasets_source ON neuroscience_datasets(source);
CREATE INDEX IF NOT EXISTS idx_datasets_modality ON neuroscience_datasets(modality);
CREATE INDEX IF NOT EXISTS idx_datasets_citations ON neuroscience_datasets(citations DESC);

CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	source       VARCHAR(50) NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	rows_synced  BIGINT NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_log_source ON sync_log(source, status, started_at DESC);
`

const unifiedViewSQL = `
CREATE OR REPLACE VIEW unified_datasets AS
SELECT
	source::text AS source,
	dataset_id,
	title,
	modality,
	citations,
	url,
	description,
	created_at,
	updated_at
FROM neuroscience_datasets;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var datasetColumns = []string{
	"source", "dataset_id", "title", "modality", "citations", "url", "description", "created_at", "updated_at",
}

func (s *PostgresStore) UpsertDatasets(ctx context.Context, records []model.DatasetRecord) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		var modality, description *string
		if r.Modality != "" {
			modality = &r.Modality
		}
		if r.Description != "" {
			description = &r.Description
		}
		rows = append(rows, []any{
			string(r.Source), r.ID, r.Title, modality, r.Citations, r.URL, description, r.CreatedAt, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "neuroscience_datasets",
		Columns:      datasetColumns,
		ConflictKeys: []string{"source", "dataset_id"},
		UpdateCols:   []string{"title", "modality", "citations", "url", "description", "updated_at"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert datasets")
}

func (s *PostgresStore) ListDatasets(ctx context.Context, filter DatasetFilter) ([]model.DatasetRecord, error) {
	query := `SELECT source, dataset_id, title, modality, citations, url, description, created_at, updated_at
	          FROM neuroscience_datasets WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (title ILIKE $%d OR description ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	query += ` ORDER BY citations DESC, title ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var records []model.DatasetRecord
	for rows.Next() {
		var r model.DatasetRecord
		var source string
		var modality, description *string
		if err := rows.Scan(&source, &r.ID, &r.Title, &modality, &r.Citations, &r.URL,
			&description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		r.Source = model.Source(source)
		if modality != nil {
			r.Modality = *modality
		}
		if description != nil {
			r.Description = *description
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list datasets iterate")
}

func (s *PostgresStore) CountsBySource(ctx context.Context) (map[model.Source]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT source, COUNT(*) FROM neuroscience_datasets GROUP BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: counts by source")
	}
	defer rows.Close()

	counts := make(map[model.Source]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source count")
		}
		counts[model.Source(source)] = count
	}
	return counts, eris.Wrap(rows.Err(), "postgres: counts iterate")
}

func (s *PostgresStore) RefreshUnifiedView(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, unifiedViewSQL)
	return eris.Wrap(err, "postgres: refresh unified view")
}

func (s *PostgresStore) HasUnifiedView(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT FROM information_schema.views
			WHERE table_schema = 'public' AND table_name = 'unified_datasets'
		)`,
	).Scan(&exists)
	return exists, eris.Wrap(err, "postgres: check unified view")
}

func (s *PostgresStore) LastSyncSuccess(ctx context.Context, source model.Source) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM sync_log
		 WHERE source = $1 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		string(source),
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: last sync for %s", source)
	}
	return &t, nil
}

func (s *PostgresStore) StartSync(ctx context.Context, source model.Source) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_log (id, source, status, started_at) VALUES ($1, $2, 'running', $3)`,
		id, string(source), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start sync for %s", source)
	}
	return id, nil
}

func (s *PostgresStore) RecentSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, started_at, completed_at, rows_synced, error
		 FROM sync_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent sync runs")
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var source string
		var errMsg *string
		if err := rows.Scan(&run.ID, &source, &run.Status, &run.StartedAt,
			&run.CompletedAt, &run.RowsSynced, &errMsg); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync run")
		}
		run.Source = model.Source(source)
		if errMsg != nil {
			run.Error = *errMsg
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: recent sync runs iterate")
}

func (s *PostgresStore) CompleteSync(ctx context.Context, syncID string, rowsSynced int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_log SET status = 'complete', completed_at = $1, rows_synced = $2 WHERE id = $3`,
		time.Now().UTC(), rowsSynced, syncID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete sync %s", syncID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync run not found: %s", syncID)
	}
	return nil
}

func (s *PostgresStore) FailSync(ctx context.Context, syncID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_log SET status = 'failed', completed_at = $1, error = $2 WHERE id = $3`,
		time.Now().UTC(), errMsg, syncID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail sync %s", syncID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync run not found: %s", syncID)
	}
	return nil
}
