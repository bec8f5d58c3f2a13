package curriculum

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeID returns the canonical form of a topic id used for all
// membership tests: trimmed, NFKC-normalized and case-folded.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(id))
}

// NormalizeSet normalizes ids into a set, dropping empties and duplicates.
func NormalizeSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if n := NormalizeID(id); n != "" {
			set[n] = true
		}
	}
	return set
}
