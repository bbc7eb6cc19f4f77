package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/neurod3/catalog-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and tests; production runs Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS neuroscience_datasets (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	source     TEXT NOT NULL,
	dataset_id TEXT NOT NULL,
	title      TEXT NOT NULL,
	modality   TEXT,
	citations  INTEGER NOT NULL DEFAULT 0,
	url        TEXT NOT NULL DEFAULT '',
	description TEXT,
	created_at DATETIME,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (source, dataset_id)
);

CREATE INDEX IF NOT EXISTS idx_datasets_source ON neuroscience_datasets(source);
CREATE INDEX IF NOT EXISTS idx_datasets_citations ON neuroscience_datasets(citations DESC);

CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	rows_synced  INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_log_source ON sync_log(source, status, started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDatasets(ctx context.Context, records []model.DatasetRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var affected int64
	for _, r := range records {
		var modality, description any
		if r.Modality != "" {
			modality = r.Modality
		}
		if r.Description != "" {
			description = r.Description
		}
		var createdAt any
		if r.CreatedAt != nil {
			createdAt = r.CreatedAt.UTC()
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO neuroscience_datasets
			 (source, dataset_id, title, modality, citations, url, description, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (source, dataset_id) DO UPDATE SET
			   title = excluded.title, modality = excluded.modality,
			   citations = excluded.citations, url = excluded.url,
			   description = excluded.description, updated_at = excluded.updated_at`,
			string(r.Source), r.ID, r.Title, modality, r.Citations, r.URL, description, createdAt, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert dataset %s/%s", r.Source, r.ID)
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return affected, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context, filter DatasetFilter) ([]model.DatasetRecord, error) {
	query := `SELECT source, dataset_id, title, modality, citations, url, description, created_at, updated_at
	          FROM neuroscience_datasets WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.Search != "" {
		query += ` AND (lower(title) LIKE ? OR lower(description) LIKE ?)`
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY citations DESC, title ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close()

	var records []model.DatasetRecord
	for rows.Next() {
		var r model.DatasetRecord
		var source string
		var modality, description sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&source, &r.ID, &r.Title, &modality, &r.Citations, &r.URL,
			&description, &createdAt, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		r.Source = model.Source(source)
		if modality.Valid {
			r.Modality = modality.String
		}
		if description.Valid {
			r.Description = description.String
		}
		if createdAt.Valid {
			t := createdAt.Time
			r.CreatedAt = &t
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			r.UpdatedAt = &t
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list datasets iterate")
}

func (s *SQLiteStore) CountsBySource(ctx context.Context) (map[model.Source]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM neuroscience_datasets GROUP BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: counts by source")
	}
	defer rows.Close()

	counts := make(map[model.Source]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source count")
		}
		counts[model.Source(source)] = count
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: counts iterate")
}

// RefreshUnifiedView recreates the unified_datasets view. SQLite has no
// CREATE OR REPLACE VIEW, so drop-then-create.
func (s *SQLiteStore) RefreshUnifiedView(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP VIEW IF EXISTS unified_datasets`); err != nil {
		return eris.Wrap(err, "sqlite: drop unified view")
	}
	_, err := s.db.ExecContext(ctx,
		`CREATE VIEW unified_datasets AS
		 SELECT source, dataset_id, title, modality, citations, url, description, created_at, updated_at
		 FROM neuroscience_datasets`)
	return eris.Wrap(err, "sqlite: create unified view")
}

func (s *SQLiteStore) HasUnifiedView(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'view' AND name = 'unified_datasets'`,
	).Scan(&count)
	return count > 0, eris.Wrap(err, "sqlite: check unified view")
}

func (s *SQLiteStore) LastSyncSuccess(ctx context.Context, source model.Source) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at FROM sync_log
		 WHERE source = ? AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		string(source),
	).Scan(&t)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: last sync for %s", source)
	}
	return &t, nil
}

func (s *SQLiteStore) StartSync(ctx context.Context, source model.Source) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, source, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, string(source), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start sync for %s", source)
	}
	return id, nil
}

func (s *SQLiteStore) RecentSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, started_at, completed_at, rows_synced, error
		 FROM sync_log ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent sync runs")
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var source string
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &source, &run.Status, &run.StartedAt,
			&completedAt, &run.RowsSynced, &errMsg); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync run")
		}
		run.Source = model.Source(source)
		if completedAt.Valid {
			t := completedAt.Time
			run.CompletedAt = &t
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: recent sync runs iterate")
}

func (s *SQLiteStore) CompleteSync(ctx context.Context, syncID string, rowsSynced int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = 'complete', completed_at = ?, rows_synced = ? WHERE id = ?`,
		time.Now().UTC(), rowsSynced, syncID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete sync %s", syncID)
	}
	return checkRowsAffected(res, "sync run", syncID)
}

func (s *SQLiteStore) FailSync(ctx context.Context, syncID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = 'failed', completed_at = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), errMsg, syncID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail sync %s", syncID)
	}
	return checkRowsAffected(res, "sync run", syncID)
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
