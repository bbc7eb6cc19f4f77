package ingest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neurod3/catalog-cli/internal/fetcher"
	"github.com/neurod3/catalog-cli/internal/model"
)

const openNeuroGraphQL = "https://openneuro.org/crn/graphql"

// OpenNeuro fetches datasets from the OpenNeuro GraphQL API, paging through
// the datasets connection and reading modality from the latest snapshot
// summary.
type OpenNeuro struct {
	Endpoint    string
	MaxDatasets int
}

// NewOpenNeuro creates the OpenNeuro source with production defaults.
func NewOpenNeuro() *OpenNeuro {
	return &OpenNeuro{
		Endpoint:    openNeuroGraphQL,
		MaxDatasets: 5000,
	}
}

func (o *OpenNeuro) Name() model.Source { return model.SourceOpenNeuro }
func (o *OpenNeuro) Cadence() Cadence   { return Daily }

func (o *OpenNeuro) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return DailySchedule(now, lastSync)
}

// latestSnapshot is avoided at the connection level upstream because it can
// fail server-side mid-pagination; one failing node must not sink the page,
// so the summary fields are requested alongside and tolerated when null.
const openNeuroQuery = `
query GetDatasets($cursor: String) {
  datasets(first: 100, after: $cursor) {
    edges {
      node {
        id
        name
        created
        latestSnapshot {
          tag
          created
          summary {
            modalities
          }
          description {
            Name
          }
        }
      }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`

type openNeuroSnapshot struct {
	Tag     string  `json:"tag"`
	Created string  `json:"created"`
	Summary *struct {
		Modalities []string `json:"modalities"`
	} `json:"summary"`
	Description *struct {
		Name string `json:"Name"`
	} `json:"description"`
}

type openNeuroNode struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Created        string             `json:"created"`
	LatestSnapshot *openNeuroSnapshot `json:"latestSnapshot"`
}

type openNeuroResponse struct {
	Data struct {
		Datasets struct {
			Edges []struct {
				Node *openNeuroNode `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"datasets"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (o *OpenNeuro) Fetch(ctx context.Context, f fetcher.Fetcher) ([]model.DatasetRecord, error) {
	log := zap.L().With(zap.String("source", "OpenNeuro"))

	var records []model.DatasetRecord
	var cursor *string

	for len(records) < o.MaxDatasets {
		var resp openNeuroResponse
		body := map[string]any{
			"query":         openNeuroQuery,
			"operationName": "GetDatasets",
			"variables":     map[string]any{"cursor": cursor},
		}
		if err := f.PostJSON(ctx, o.Endpoint, body, &resp); err != nil {
			return nil, err
		}

		// Partial errors are tolerated as long as data came back.
		if len(resp.Errors) > 0 {
			log.Warn("graphql returned partial errors",
				zap.String("first", resp.Errors[0].Message),
				zap.Int("count", len(resp.Errors)),
			)
		}

		edges := resp.Data.Datasets.Edges
		if len(edges) == 0 {
			break
		}

		for _, edge := range edges {
			if len(records) >= o.MaxDatasets {
				break
			}
			node := edge.Node
			if node == nil || node.ID == "" {
				log.Warn("skipping dataset with missing identifier")
				continue
			}

			rec := model.DatasetRecord{
				Source:    model.SourceOpenNeuro,
				ID:        node.ID,
				Title:     node.Name,
				URL:       fmt.Sprintf("https://openneuro.org/datasets/%s", node.ID),
				CreatedAt: parseISO8601(node.Created),
			}
			if snap := node.LatestSnapshot; snap != nil {
				if rec.Title == "" && snap.Description != nil {
					rec.Title = snap.Description.Name
				}
				rec.UpdatedAt = parseISO8601(snap.Created)
				if snap.Summary != nil {
					rec.Modality = canonicalModalities(snap.Summary.Modalities)
				}
			}
			if rec.Title == "" {
				rec.Title = node.ID
			}

			records = append(records, rec)
		}

		info := resp.Data.Datasets.PageInfo
		if !info.HasNextPage {
			break
		}
		cursor = &info.EndCursor
	}

	log.Info("fetched dataset listing", zap.Int("count", len(records)))
	return records, nil
}

// canonicalModalityLabels are the modality labels the catalog exposes.
var canonicalModalityLabels = map[string]struct{}{
	"Behavioral": {}, "Calcium Imaging": {}, "Clinical": {}, "ECG": {},
	"EEG": {}, "Electrophysiology": {}, "fMRI": {}, "iEEG": {},
	"MEG": {}, "MRI": {}, "NIRS": {}, "PET": {}, "Survey": {}, "X-ray": {},
}

var modalitySplitRe = regexp.MustCompile(`[,;/|]+`)

// canonicalModalities maps raw OpenNeuro modality values (BIDS datatypes,
// scan-type strings, free text) onto the canonical labels, sorted and
// comma-joined. Unmappable values are dropped.
func canonicalModalities(raw []string) string {
	var items []string
	for _, r := range raw {
		for _, part := range modalitySplitRe.Split(r, -1) {
			if p := strings.TrimSpace(part); p != "" {
				items = append(items, p)
			}
		}
	}

	seen := make(map[string]struct{})
	var mapped []string
	for _, item := range items {
		label := mapModality(item)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		mapped = append(mapped, label)
	}

	sort.Strings(mapped)
	return strings.Join(mapped, ", ")
}

func mapModality(s string) string {
	k := strings.ToLower(s)
	switch {
	case k == "func" || k == "bold" || k == "sbref" ||
		strings.Contains(k, "_bold") || strings.Contains(k, "_sbref") ||
		strings.Contains(k, "fmri"):
		return "fMRI"
	case k == "anat" || k == "dwi" || k == "mri" ||
		strings.Contains(k, "t1w") || strings.Contains(k, "t2w") ||
		strings.Contains(k, "flair") || strings.Contains(k, "structural") ||
		strings.Contains(k, "diffusion"):
		return "MRI"
	case k == "beh" || strings.Contains(k, "behavior") || strings.Contains(k, "behaviour"):
		return "Behavioral"
	case strings.Contains(k, "ieeg") || strings.Contains(k, "intracranial"):
		return "iEEG"
	case strings.Contains(k, "eeg"):
		return "EEG"
	case strings.Contains(k, "meg"):
		return "MEG"
	case strings.Contains(k, "nirs"):
		return "NIRS"
	case strings.Contains(k, "pet"):
		return "PET"
	case strings.Contains(k, "ecg"):
		return "ECG"
	case strings.Contains(k, "xray") || strings.Contains(k, "x-ray") || strings.Contains(k, "x ray"):
		return "X-ray"
	case strings.Contains(k, "calcium"):
		return "Calcium Imaging"
	case strings.Contains(k, "electrophysiology") || strings.Contains(k, "ephys"):
		return "Electrophysiology"
	case strings.Contains(k, "clinical"):
		return "Clinical"
	case strings.Contains(k, "survey") || strings.Contains(k, "questionnaire"):
		return "Survey"
	}
	// Already-canonical spellings pass through unchanged.
	if _, ok := canonicalModalityLabels[s]; ok {
		return s
	}
	return ""
}
