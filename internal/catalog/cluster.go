package catalog

import "github.com/neurod3/catalog-cli/internal/model"

// similarityThreshold is the exclusive keyword-overlap ratio above which two
// titles are considered near-duplicates.
const similarityThreshold = 0.6

// titleSimilarity returns |a ∩ b| / min(|a|, |b|) over keyword sets, or 0 if
// either set is empty.
func titleSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{}, len(b))
	for _, k := range b {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			shared++
		}
	}
	smaller := len(set)
	if len(seen) < smaller {
		smaller = len(seen)
	}
	return float64(shared) / float64(smaller)
}

// Cluster groups near-duplicate records into primary+alternates groups with
// a single greedy pass in input order.
//
// The pass is deliberately order-dependent: the first unprocessed record
// always becomes a group's primary, and a record claimed as an alternate is
// never revisited. Matching is therefore not transitive closure — if A
// matches B and B matches C but A does not match C, C anchors its own group.
// The output is always a partition of the input: every record appears in
// exactly one group, as its primary or as exactly one group's alternate.
func Cluster(records []model.DatasetRecord) []model.DatasetGroup {
	keywords := make([][]string, len(records))
	for i, r := range records {
		keywords[i] = NormalizeTitle(r.Title)
	}

	processed := make([]bool, len(records))
	groups := make([]model.DatasetGroup, 0, len(records))

	for i := range records {
		if processed[i] {
			continue
		}
		processed[i] = true

		var alternates []model.DatasetRecord
		for j := i + 1; j < len(records); j++ {
			if processed[j] {
				continue
			}
			if titleSimilarity(keywords[i], keywords[j]) > similarityThreshold {
				alternates = append(alternates, records[j])
				processed[j] = true
			}
		}

		groups = append(groups, model.DatasetGroup{
			Primary:       records[i],
			Alternates:    alternates,
			HasDuplicates: len(alternates) > 0,
		})
	}

	return groups
}
