package ingest

import (
	"context"
	"time"

	"github.com/neurod3/catalog-cli/internal/fetcher"
	"github.com/neurod3/catalog-cli/internal/model"
)

// Cadence describes how often a source is refreshed upstream.
type Cadence string

const (
	Daily  Cadence = "daily"
	Weekly Cadence = "weekly"
)

// Source defines the interface each upstream catalog must implement.
type Source interface {
	// Name returns the catalog this source feeds.
	Name() model.Source

	// Cadence returns how often this source publishes new datasets.
	Cadence() Cadence

	// ShouldRun decides if this source needs syncing given the current time
	// and the time of the last successful sync (nil if never synced).
	ShouldRun(now time.Time, lastSync *time.Time) bool

	// Fetch downloads and normalizes the source's dataset listing.
	Fetch(ctx context.Context, f fetcher.Fetcher) ([]model.DatasetRecord, error)
}

// DailySchedule returns true if a sync is needed for a daily source.
func DailySchedule(now time.Time, lastSync *time.Time) bool {
	if lastSync == nil {
		return true
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return lastSync.Before(today)
}

// WeeklySchedule returns true if a sync is needed for a weekly source.
func WeeklySchedule(now time.Time, lastSync *time.Time) bool {
	if lastSync == nil {
		return true
	}
	// Start of the current ISO week (Monday).
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	weekStart := time.Date(now.Year(), now.Month(), now.Day()-(weekday-1), 0, 0, 0, 0, time.UTC)
	return lastSync.Before(weekStart)
}
