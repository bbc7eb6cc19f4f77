package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpsertSQL(t *testing.T) {
	sql, err := BuildUpsertSQL(UpsertConfig{
		Table:        "datasets",
		Columns:      []string{"source", "dataset_id", "title"},
		ConflictKeys: []string{"source", "dataset_id"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO datasets (source, dataset_id, title)")
	assert.Contains(t, sql, "VALUES ($1, $2, $3)")
	assert.Contains(t, sql, "ON CONFLICT (source, dataset_id)")
	assert.Contains(t, sql, "title = EXCLUDED.title")
	assert.NotContains(t, sql, "source = EXCLUDED.source")
}

func TestBuildUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	sql, err := BuildUpsertSQL(UpsertConfig{
		Table:        "datasets",
		Columns:      []string{"source", "dataset_id", "title", "citations"},
		ConflictKeys: []string{"source", "dataset_id"},
		UpdateCols:   []string{"citations"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "DO UPDATE SET citations = EXCLUDED.citations")
	assert.NotContains(t, sql, "title = EXCLUDED.title")
}

func TestBuildUpsertSQL_Validation(t *testing.T) {
	_, err := BuildUpsertSQL(UpsertConfig{Columns: []string{"a"}, ConflictKeys: []string{"a"}})
	assert.Error(t, err)

	_, err = BuildUpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"a"}})
	assert.Error(t, err)

	_, err = BuildUpsertSQL(UpsertConfig{Table: "t", Columns: []string{"a"}})
	assert.Error(t, err)
}

func TestBulkUpsert_EmptyRowsNoOp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "datasets",
		Columns:      []string{"a"},
		ConflictKeys: []string{"a"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_ExecsEachRowInTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO datasets").
		WithArgs("DANDI", "000004").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO datasets").
		WithArgs("Kaggle", "eeg-alc").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "datasets",
		Columns:      []string{"source", "dataset_id"},
		ConflictKeys: []string{"source", "dataset_id"},
		UpdateCols:   []string{"dataset_id"},
	}, [][]any{
		{"DANDI", "000004"},
		{"Kaggle", "eeg-alc"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_RowWidthMismatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "datasets",
		Columns:      []string{"source", "dataset_id"},
		ConflictKeys: []string{"source"},
	}, [][]any{{"DANDI"}})
	assert.Error(t, err)
}
