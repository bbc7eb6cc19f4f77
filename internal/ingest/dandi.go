package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neurod3/catalog-cli/internal/fetcher"
	"github.com/neurod3/catalog-cli/internal/model"
)

const dandiAPIBase = "https://api.dandiarchive.org/api"

// DANDI fetches dandisets from the DANDI Archive REST API. The list endpoint
// carries identifiers and version names only; description and modality come
// from a per-dandiset version metadata request.
type DANDI struct {
	BaseURL     string
	MaxDatasets int
	EnrichPar   int // concurrent metadata requests
	SkipEnrich  bool
}

// NewDANDI creates the DANDI source with production defaults.
func NewDANDI() *DANDI {
	return &DANDI{
		BaseURL:     dandiAPIBase,
		MaxDatasets: 5000,
		EnrichPar:   8,
	}
}

func (d *DANDI) Name() model.Source { return model.SourceDANDI }
func (d *DANDI) Cadence() Cadence   { return Daily }

func (d *DANDI) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return DailySchedule(now, lastSync)
}

type dandiVersion struct {
	Version  string `json:"version"`
	Name     string `json:"name"`
	Modified string `json:"modified"`
}

type dandiListItem struct {
	Identifier                 string        `json:"identifier"`
	Created                    string        `json:"created"`
	Modified                   string        `json:"modified"`
	MostRecentPublishedVersion *dandiVersion `json:"most_recent_published_version"`
	DraftVersion               *dandiVersion `json:"draft_version"`
}

type dandiListPage struct {
	Count   int             `json:"count"`
	Next    string          `json:"next"`
	Results []dandiListItem `json:"results"`
}

type dandiVersionDetail struct {
	Description   string `json:"description"`
	Metadata      struct {
		Description string `json:"description"`
	} `json:"metadata"`
	AssetsSummary map[string]any `json:"assetsSummary"`
}

func (d *DANDI) Fetch(ctx context.Context, f fetcher.Fetcher) ([]model.DatasetRecord, error) {
	log := zap.L().With(zap.String("source", "DANDI"))

	type staged struct {
		record  model.DatasetRecord
		version string
	}
	var pending []staged

	next := d.BaseURL + "/dandisets/"
	for next != "" && len(pending) < d.MaxDatasets {
		var page dandiListPage
		if err := f.GetJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		if len(page.Results) == 0 {
			break
		}

		for _, item := range page.Results {
			if len(pending) >= d.MaxDatasets {
				break
			}
			if item.Identifier == "" {
				log.Warn("skipping dandiset with missing identifier")
				continue
			}

			version := item.MostRecentPublishedVersion
			if version == nil {
				version = item.DraftVersion
			}

			rec := model.DatasetRecord{
				Source: model.SourceDANDI,
				ID:     item.Identifier,
				URL:    fmt.Sprintf("https://dandiarchive.org/dandiset/%s", item.Identifier),
			}
			rec.CreatedAt = parseISO8601(item.Created)
			rec.UpdatedAt = parseISO8601(item.Modified)

			versionID := "draft"
			if version != nil {
				rec.Title = version.Name
				if t := parseISO8601(version.Modified); t != nil {
					rec.UpdatedAt = t
				}
				if version.Version != "" {
					versionID = version.Version
					rec.URL = fmt.Sprintf("https://dandiarchive.org/dandiset/%s/%s", item.Identifier, version.Version)
				}
			}
			if rec.Title == "" {
				rec.Title = item.Identifier
			}

			pending = append(pending, staged{record: rec, version: versionID})
		}

		next = page.Next
	}

	log.Info("fetched dandiset listing", zap.Int("count", len(pending)))

	records := make([]model.DatasetRecord, len(pending))
	for i, p := range pending {
		records[i] = p.record
	}

	if d.SkipEnrich {
		return records, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.EnrichPar)

	for i, p := range pending {
		g.Go(func() error {
			detail, err := d.fetchVersionDetail(gctx, f, p.record.ID, p.version)
			if err != nil {
				// Enrichment is best-effort; the listing row still stands.
				log.Warn("metadata fetch failed",
					zap.String("dandiset", p.record.ID),
					zap.String("version", p.version),
					zap.Error(err),
				)
				return nil
			}

			desc := detail.Metadata.Description
			if desc == "" {
				desc = detail.Description
			}
			modality := dandiModality(detail.AssetsSummary)

			mu.Lock()
			records[i].Description = desc
			records[i].Modality = modality
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

func (d *DANDI) fetchVersionDetail(ctx context.Context, f fetcher.Fetcher, id, version string) (*dandiVersionDetail, error) {
	var detail dandiVersionDetail
	url := fmt.Sprintf("%s/dandisets/%s/versions/%s/", d.BaseURL, id, version)
	err := f.GetJSON(ctx, url, &detail)
	if err != nil && version != "draft" {
		// Published version metadata sometimes 404s; fall back to draft.
		url = fmt.Sprintf("%s/dandisets/%s/versions/draft/", d.BaseURL, id)
		err = f.GetJSON(ctx, url, &detail)
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// dandiModalityKeys are the assetsSummary fields that carry modality-like
// values, in the shapes DANDI has used over time.
var dandiModalityKeys = []string{
	"modalities", "modality", "approach", "measurementTechnique", "dataType", "dataTypes",
}

func dandiModality(summary map[string]any) string {
	if summary == nil {
		return ""
	}

	seen := make(map[string]struct{})
	var parts []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		parts = append(parts, s)
	}

	for _, key := range dandiModalityKeys {
		items, ok := summary[key]
		if !ok || items == nil {
			continue
		}
		list, ok := items.([]any)
		if !ok {
			list = []any{items}
		}
		for _, item := range list {
			switch v := item.(type) {
			case string:
				add(v)
			case map[string]any:
				for _, field := range []string{"name", "label", "identifier"} {
					if s, ok := v[field].(string); ok && s != "" {
						add(s)
						break
					}
				}
			}
		}
	}

	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func parseISO8601(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	zap.L().Warn("could not parse timestamp", zap.String("value", s))
	return nil
}
