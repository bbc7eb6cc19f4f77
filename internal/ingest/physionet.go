package ingest

import (
	"context"
	"time"

	"github.com/neurod3/catalog-cli/internal/fetcher"
	"github.com/neurod3/catalog-cli/internal/model"
)

// PhysioNet serves a curated list of physiological signal databases.
// PhysioNet publishes no machine-readable catalog with citation counts, so
// the selection is hand-maintained like Kaggle's.
type PhysioNet struct{}

// NewPhysioNet creates the PhysioNet source.
func NewPhysioNet() *PhysioNet { return &PhysioNet{} }

func (p *PhysioNet) Name() model.Source { return model.SourcePhysioNet }
func (p *PhysioNet) Cadence() Cadence   { return Weekly }

func (p *PhysioNet) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return WeeklySchedule(now, lastSync)
}

func (p *PhysioNet) Fetch(_ context.Context, _ fetcher.Fetcher) ([]model.DatasetRecord, error) {
	return physioNetCatalog(), nil
}

func physioNetCatalog() []model.DatasetRecord {
	return []model.DatasetRecord{
		{
			Source:      model.SourcePhysioNet,
			ID:          "eegmmidb",
			Title:       "EEG Motor Movement/Imagery Dataset",
			Modality:    "EEG",
			Citations:   3847,
			URL:         "https://physionet.org/content/eegmmidb/",
			Description: "EEG recordings during motor movement and motor imagery tasks",
		},
		{
			Source:      model.SourcePhysioNet,
			ID:          "chbmit",
			Title:       "CHB-MIT Scalp EEG Database",
			Modality:    "EEG",
			Citations:   1567,
			URL:         "https://physionet.org/content/chbmit/",
			Description: "Pediatric EEG recordings with seizure annotations",
		},
		{
			Source:      model.SourcePhysioNet,
			ID:          "sleep-edf",
			Title:       "Sleep-EDF Database",
			Modality:    "EEG",
			Citations:   2145,
			URL:         "https://physionet.org/content/sleep-edf/",
			Description: "Polysomnographic sleep recordings",
		},
		{
			Source:      model.SourcePhysioNet,
			ID:          "mitdb",
			Title:       "MIT-BIH Arrhythmia Database",
			Modality:    "ECG",
			Citations:   4523,
			URL:         "https://physionet.org/content/mitdb/",
			Description: "Annotated ECG recordings for arrhythmia research",
		},
		{
			Source:      model.SourcePhysioNet,
			ID:          "ptbdb",
			Title:       "PTB Diagnostic ECG Database",
			Modality:    "ECG",
			Citations:   1892,
			URL:         "https://physionet.org/content/ptbdb/",
			Description: "ECG recordings from healthy and pathological subjects",
		},
		{
			Source:      model.SourcePhysioNet,
			ID:          "mimic-cxr",
			Title:       "MIMIC-CXR Database",
			Modality:    "X-ray",
			Citations:   876,
			URL:         "https://physionet.org/content/mimic-cxr/",
			Description: "Large chest X-ray dataset with free-text radiology reports",
		},
	}
}
