// Package catalog implements the unification layer over the merged dataset
// snapshot: title keyword normalization, duplicate clustering, modality
// canonicalization, facet aggregation and the query engine. Everything here
// is a pure function over a caller-supplied snapshot.
package catalog

import (
	"regexp"
	"strings"
)

// minKeywordLen is the exclusive length cutoff below which title tokens are
// discarded as uninformative connective words.
const minKeywordLen = 4

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9 ]+`)
var multiSpaceRe = regexp.MustCompile(`\s+`)

// NormalizeTitle reduces a title to its comparable keyword set:
//  1. Lowercase
//  2. Strip everything that is not a letter, digit or space
//  3. Collapse whitespace runs and trim
//  4. Split on spaces, keeping only tokens longer than four characters
//
// An empty or all-short-word title yields an empty set.
func NormalizeTitle(title string) []string {
	t := strings.ToLower(title)
	t = nonAlnumRe.ReplaceAllString(t, "")
	t = multiSpaceRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)
	if t == "" {
		return nil
	}

	var keywords []string
	for _, tok := range strings.Split(t, " ") {
		if len(tok) > minKeywordLen {
			keywords = append(keywords, tok)
		}
	}
	return keywords
}
