package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurod3/catalog-cli/internal/fetcher"
	"github.com/neurod3/catalog-cli/internal/model"
	"github.com/neurod3/catalog-cli/internal/store"
)

// memStore is a minimal in-memory Store for engine tests.
type memStore struct {
	mu          sync.Mutex
	records     map[string]model.DatasetRecord
	runs        map[string]*store.SyncRun
	lastSuccess map[model.Source]time.Time
	refreshed   int
	nextID      int
}

func newMemStore() *memStore {
	return &memStore{
		records:     make(map[string]model.DatasetRecord),
		runs:        make(map[string]*store.SyncRun),
		lastSuccess: make(map[model.Source]time.Time),
	}
}

func (m *memStore) UpsertDatasets(_ context.Context, records []model.DatasetRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[string(r.Source)+"/"+r.ID] = r
	}
	return int64(len(records)), nil
}

func (m *memStore) ListDatasets(_ context.Context, _ store.DatasetFilter) ([]model.DatasetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DatasetRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) CountsBySource(_ context.Context) (map[model.Source]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.Source]int)
	for _, r := range m.records {
		counts[r.Source]++
	}
	return counts, nil
}

func (m *memStore) RefreshUnifiedView(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed++
	return nil
}

func (m *memStore) HasUnifiedView(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshed > 0, nil
}

func (m *memStore) LastSyncSuccess(_ context.Context, source model.Source) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.lastSuccess[source]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *memStore) StartSync(_ context.Context, source model.Source) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("run-%d", m.nextID)
	m.runs[id] = &store.SyncRun{ID: id, Source: source, Status: "running", StartedAt: time.Now().UTC()}
	return id, nil
}

func (m *memStore) CompleteSync(_ context.Context, syncID string, rowsSynced int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.runs[syncID]
	run.Status = "complete"
	run.RowsSynced = rowsSynced
	m.lastSuccess[run.Source] = run.StartedAt
	return nil
}

func (m *memStore) FailSync(_ context.Context, syncID string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.runs[syncID]
	run.Status = "failed"
	run.Error = errMsg
	return nil
}

func (m *memStore) RecentSyncRuns(_ context.Context, _ int) ([]store.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.SyncRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Ping(context.Context) error    { return nil }
func (m *memStore) Close() error                  { return nil }

// stubSource returns canned records or an error.
type stubSource struct {
	name    model.Source
	records []model.DatasetRecord
	err     error
	due     bool
}

func (s *stubSource) Name() model.Source { return s.name }
func (s *stubSource) Cadence() Cadence   { return Daily }
func (s *stubSource) ShouldRun(time.Time, *time.Time) bool {
	return s.due
}
func (s *stubSource) Fetch(context.Context, fetcher.Fetcher) ([]model.DatasetRecord, error) {
	return s.records, s.err
}

func stubRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[model.Source]Source)}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

func TestEngineRunSyncsDueSources(t *testing.T) {
	st := newMemStore()
	reg := stubRegistry(
		&stubSource{name: model.SourceDANDI, due: true, records: []model.DatasetRecord{
			{Source: model.SourceDANDI, ID: "000003", Title: "Hippocampus recordings"},
			{Source: model.SourceDANDI, ID: "000004", Title: "Single-neuron activity"},
		}},
		&stubSource{name: model.SourceKaggle, due: false},
	)

	e := NewEngine(st, nil, reg, 2)
	stats, err := e.Run(context.Background(), RunOpts{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)
	assert.EqualValues(t, 2, stats.Rows)
	assert.Len(t, st.records, 2)
	assert.Equal(t, 1, st.refreshed)

	last, err := st.LastSyncSuccess(context.Background(), model.SourceDANDI)
	require.NoError(t, err)
	assert.NotNil(t, last)
}

func TestEngineForceOverridesSchedule(t *testing.T) {
	st := newMemStore()
	reg := stubRegistry(&stubSource{name: model.SourceKaggle, due: false, records: []model.DatasetRecord{
		{Source: model.SourceKaggle, ID: "a/b", Title: "EEG set"},
	}})

	e := NewEngine(st, nil, reg, 1)
	stats, err := e.Run(context.Background(), RunOpts{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 0, stats.Skipped)
}

func TestEngineRecordsFailureAndContinues(t *testing.T) {
	st := newMemStore()
	reg := stubRegistry(
		&stubSource{name: model.SourceDANDI, due: true, err: fmt.Errorf("upstream down")},
		&stubSource{name: model.SourcePhysioNet, due: true, records: []model.DatasetRecord{
			{Source: model.SourcePhysioNet, ID: "mitdb", Title: "MIT-BIH Arrhythmia Database"},
		}},
	)

	e := NewEngine(st, nil, reg, 1)
	stats, err := e.Run(context.Background(), RunOpts{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, st.refreshed)

	runs, err := st.RecentSyncRuns(context.Background(), 10)
	require.NoError(t, err)
	statuses := make(map[model.Source]string)
	errors := make(map[model.Source]string)
	for _, r := range runs {
		statuses[r.Source] = r.Status
		errors[r.Source] = r.Error
	}
	assert.Equal(t, "failed", statuses[model.SourceDANDI])
	assert.Contains(t, errors[model.SourceDANDI], "upstream down")
	assert.Equal(t, "complete", statuses[model.SourcePhysioNet])
}

func TestEngineNoSyncNoRefresh(t *testing.T) {
	st := newMemStore()
	reg := stubRegistry(&stubSource{name: model.SourceOpenNeuro, due: false})

	e := NewEngine(st, nil, reg, 1)
	stats, err := e.Run(context.Background(), RunOpts{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, st.refreshed)
}

func TestEngineSelectUnknownSource(t *testing.T) {
	e := NewEngine(newMemStore(), nil, stubRegistry(), 1)
	_, err := e.Run(context.Background(), RunOpts{Sources: []string{"ArXiv"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}
