package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurod3/catalog-cli/internal/model"
)

func facetSnapshot() []model.DatasetRecord {
	return []model.DatasetRecord{
		{Source: model.SourceDANDI, ID: "1", Title: "a", Modality: "Electrophysiology"},
		{Source: model.SourceDANDI, ID: "2", Title: "b", Modality: "EEG;fMRI"},
		{Source: model.SourceKaggle, ID: "3", Title: "c", Modality: "EEG"},
		{Source: model.SourceOpenNeuro, ID: "4", Title: "d", Modality: "fMRI"},
		{Source: model.SourcePhysioNet, ID: "5", Title: "e", Modality: "ECG"},
		{Source: model.SourceKaggle, ID: "6", Title: "f"}, // no modality
	}
}

func TestComputeFacets_Unfiltered(t *testing.T) {
	stats := ComputeFacets(facetSnapshot(), model.DefaultFilterState())

	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 2, stats.BySource[model.SourceDANDI])
	assert.Equal(t, 2, stats.BySource[model.SourceKaggle])
	assert.Equal(t, 1, stats.BySource[model.SourceOpenNeuro])
	assert.Equal(t, 1, stats.BySource[model.SourcePhysioNet])
	assert.Equal(t, 2, stats.ByModality["eeg"])
	assert.Equal(t, 2, stats.ByModality["fmri"])
	assert.Equal(t, 1, stats.ByModality["ecg"])
}

func TestComputeFacets_MultiTokenRecordCountsInEachBucket(t *testing.T) {
	stats := ComputeFacets([]model.DatasetRecord{
		{Source: model.SourceDANDI, ID: "1", Modality: "EEG;fMRI;MEG"},
	}, model.DefaultFilterState())

	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByModality["eeg"])
	assert.Equal(t, 1, stats.ByModality["fmri"])
	assert.Equal(t, 1, stats.ByModality["meg"])
}

func TestComputeFacets_DuplicateTokensCountOnce(t *testing.T) {
	stats := ComputeFacets([]model.DatasetRecord{
		{Source: model.SourceDANDI, ID: "1", Modality: "EEG;eeg"},
	}, model.DefaultFilterState())
	assert.Equal(t, 1, stats.ByModality["eeg"])
}

func TestComputeFacets_RespectsActiveFilters(t *testing.T) {
	filters := model.DefaultFilterState()
	filters.SelectedModalities = []string{"eeg"}

	stats := ComputeFacets(facetSnapshot(), filters)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.BySource[model.SourceDANDI])
	assert.Equal(t, 1, stats.BySource[model.SourceKaggle])
	// Zero-count options are absent, not present-with-zero.
	_, ok := stats.BySource[model.SourcePhysioNet]
	assert.False(t, ok)
}

func TestAvailableSources_DropsZeroCounts(t *testing.T) {
	filters := model.DefaultFilterState()
	filters.SelectedModalities = []string{"eeg"}

	stats := ComputeFacets(facetSnapshot(), filters)
	assert.Equal(t, []model.Source{model.SourceDANDI, model.SourceKaggle}, AvailableSources(stats))
}

func TestAvailableModalities_Sorted(t *testing.T) {
	stats := ComputeFacets(facetSnapshot(), model.DefaultFilterState())
	assert.Equal(t, []string{"ecg", "eeg", "electrophysiology", "fmri"}, AvailableModalities(stats))
}

func TestReconcileFilters_ResetsVanishedSource(t *testing.T) {
	filters := model.DefaultFilterState()
	filters.SourceFilter = string(model.SourcePhysioNet)
	filters.SelectedModalities = []string{"eeg"}

	// Under the eeg filter PhysioNet has no records left.
	stats := ComputeFacets(facetSnapshot(), model.FilterState{
		SourceFilter:       model.SourceAll,
		SelectedModalities: filters.SelectedModalities,
	})
	require.Zero(t, stats.BySource[model.SourcePhysioNet])

	reconciled := ReconcileFilters(filters, stats)
	assert.Equal(t, model.SourceAll, reconciled.SourceFilter)
}

func TestReconcileFilters_ModalitySelectionStaysSticky(t *testing.T) {
	// A selected modality whose count dropped to zero is kept; only the
	// source filter auto-resets. Intentional asymmetry.
	filters := model.DefaultFilterState()
	filters.SourceFilter = string(model.SourcePhysioNet)
	filters.SelectedModalities = []string{"eeg"}

	stats := ComputeFacets(facetSnapshot(), filters)
	require.Zero(t, stats.Total)

	reconciled := ReconcileFilters(filters, stats)
	assert.Equal(t, []string{"eeg"}, reconciled.SelectedModalities)
}

func TestReconcileFilters_KeepsLiveSource(t *testing.T) {
	filters := model.DefaultFilterState()
	filters.SourceFilter = string(model.SourceDANDI)

	stats := ComputeFacets(facetSnapshot(), model.DefaultFilterState())
	reconciled := ReconcileFilters(filters, stats)
	assert.Equal(t, string(model.SourceDANDI), reconciled.SourceFilter)
}
