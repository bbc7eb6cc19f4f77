package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert operation.
type UpsertConfig struct {
	Table        string   // target table (e.g., "datasets")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// BuildUpsertSQL renders the INSERT ... ON CONFLICT statement for one row of
// positional parameters.
func BuildUpsertSQL(cfg UpsertConfig) (string, error) {
	if cfg.Table == "" {
		return "", eris.New("db: upsert: no table specified")
	}
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sets := make([]string, len(updateCols))
	for i, c := range updateCols {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}

	return fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s`,
		cfg.Table,
		strings.Join(cfg.Columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(cfg.ConflictKeys, ", "),
		strings.Join(sets, ", "),
	), nil
}

// BulkUpsert upserts rows one statement at a time inside a transaction.
// Row volumes here are catalog-sized (hundreds of rows per source), so a
// transactional loop is simpler than the temp-table COPY dance and fast
// enough.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	sql, err := BuildUpsertSQL(cfg)
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin")
	}
	defer tx.Rollback(ctx)

	var affected int64
	for _, row := range rows {
		if len(row) != len(cfg.Columns) {
			return 0, eris.Errorf("db: upsert: row has %d values, want %d", len(row), len(cfg.Columns))
		}
		tag, err := tx.Exec(ctx, sql, row...)
		if err != nil {
			return 0, eris.Wrapf(err, "db: upsert into %s", cfg.Table)
		}
		affected += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit")
	}
	return affected, nil
}
