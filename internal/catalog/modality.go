package catalog

import (
	"strings"
	"unicode"
)

// SplitModalities splits a delimited modality field into its raw tokens.
// Tokens are separated by ';' or ','; pieces are trimmed and empty pieces
// dropped. Order and duplicates are preserved — de-duplication is the
// caller's job where it matters (facet keys, selection sets).
func SplitModalities(field string) []string {
	if field == "" {
		return nil
	}
	var tokens []string
	for _, piece := range strings.FieldsFunc(field, func(r rune) bool {
		return r == ';' || r == ','
	}) {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			tokens = append(tokens, piece)
		}
	}
	return tokens
}

// ModalityKey returns the comparison key for a modality token. This is the
// only form used for selection membership, filter matching and facet
// bucketing.
func ModalityKey(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// FormatModality renders a modality token for display. A token containing
// two or more consecutive uppercase letters is returned unchanged so that
// acronyms like EEG, fMRI and iEEG keep their casing; everything else is
// lowercased. The heuristic can misclassify camel-case non-acronyms; that is
// accepted behavior. FormatModality is idempotent and never used for
// comparisons.
func FormatModality(token string) string {
	t := strings.TrimSpace(token)
	prevUpper := false
	for _, r := range t {
		upper := unicode.IsUpper(r)
		if upper && prevUpper {
			return t
		}
		prevUpper = upper
	}
	return strings.ToLower(t)
}
