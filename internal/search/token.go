package search

import (
	"strings"
	"unicode/utf8"
)

const (
	exactScore  = 1.0
	prefixScore = 0.9
)

// FuzzyThreshold is the largest edit distance tolerated for a query token
// of the given length. Short words only match exactly.
func FuzzyThreshold(queryLen int) int {
	switch {
	case queryLen <= 2:
		return 0
	case queryLen <= 5:
		return 1
	case queryLen <= 8:
		return 2
	default:
		return 3
	}
}

// Matcher scores a single query token against the tokens of one field.
type Matcher struct {
	// MaxTokenLength disables fuzzy matching when either token is longer.
	// Exact and prefix matches still apply. Zero means no limit.
	MaxTokenLength int
}

// ScoreToken scores queryToken against candidates with an unbounded Matcher.
func ScoreToken(queryToken string, candidates []string) float64 {
	return Matcher{}.ScoreToken(queryToken, candidates)
}

// ScoreToken returns 1 for an exact match, 0.9 for a prefix match and
// 1 - distance/maxLen for a fuzzy match within FuzzyThreshold. The best
// score across all candidates wins; 0 means no match of any kind.
func (m Matcher) ScoreToken(queryToken string, candidates []string) float64 {
	queryLen := utf8.RuneCountInString(queryToken)
	threshold := FuzzyThreshold(queryLen)
	best := 0.0

	for _, candidate := range candidates {
		if candidate == queryToken {
			return exactScore
		}

		if strings.HasPrefix(candidate, queryToken) {
			best = max(best, prefixScore)
			continue
		}

		if threshold == 0 {
			continue
		}

		candidateLen := utf8.RuneCountInString(candidate)
		if m.MaxTokenLength > 0 && (queryLen > m.MaxTokenLength || candidateLen > m.MaxTokenLength) {
			continue
		}
		// the length difference is a lower bound on the distance
		if abs(queryLen-candidateLen) > threshold {
			continue
		}

		distance := LevenshteinDistance(queryToken, candidate)
		if distance > threshold {
			continue
		}
		similarity := 1 - float64(distance)/float64(max(queryLen, candidateLen))
		best = max(best, similarity)
	}

	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
