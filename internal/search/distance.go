package search

import (
	edlib "github.com/hbollon/go-edlib"
)

// LevenshteinDistance returns the minimum number of single-character
// insertions, deletions and substitutions turning a into b. Characters are
// compared as runes.
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	return edlib.LevenshteinDistance(a, b)
}
