package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Source identifies the external catalog a dataset was ingested from.
type Source string

const (
	SourceDANDI     Source = "DANDI"
	SourceKaggle    Source = "Kaggle"
	SourceOpenNeuro Source = "OpenNeuro"
	SourcePhysioNet Source = "PhysioNet"
)

// Sources lists every known source in display order.
var Sources = []Source{SourceDANDI, SourceKaggle, SourceOpenNeuro, SourcePhysioNet}

// ParseSource validates a raw source string. Unknown values are a client
// error at the request boundary, never a valid filter.
func ParseSource(s string) (Source, error) {
	for _, src := range Sources {
		if s == string(src) {
			return src, nil
		}
	}
	return "", eris.Errorf("unknown source: %q (valid: DANDI, Kaggle, OpenNeuro, PhysioNet)", s)
}

// DatasetRecord is one ingested catalog entry. (Source, ID) is the natural
// key and is unique within a snapshot.
type DatasetRecord struct {
	Source      Source     `json:"source"`
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Modality    string     `json:"modality,omitempty"` // delimited tokens, may be empty
	Citations   int        `json:"citations"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// DatasetGroup is one cluster of near-duplicate records. The primary is the
// first record of the cluster in snapshot order; alternates are hidden
// behind an expand action in the UI.
type DatasetGroup struct {
	Primary       DatasetRecord   `json:"primary"`
	Alternates    []DatasetRecord `json:"alternates"`
	HasDuplicates bool            `json:"has_duplicates"`
}

// Records returns every record in the group, primary first.
func (g DatasetGroup) Records() []DatasetRecord {
	out := make([]DatasetRecord, 0, 1+len(g.Alternates))
	out = append(out, g.Primary)
	out = append(out, g.Alternates...)
	return out
}
