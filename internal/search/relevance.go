package search

import (
	"fmt"
	"strings"
)

// EmptyQueryPolicy decides what a blank query returns.
type EmptyQueryPolicy string

const (
	// ReturnAll passes every candidate through unscored.
	ReturnAll EmptyQueryPolicy = "returnAll"
	// ReturnNone returns an empty result.
	ReturnNone EmptyQueryPolicy = "returnNone"
)

// ParseEmptyQueryPolicy accepts "returnAll" or "returnNone", case-insensitively.
func ParseEmptyQueryPolicy(s string) (EmptyQueryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "returnall":
		return ReturnAll, nil
	case "returnnone":
		return ReturnNone, nil
	default:
		return "", fmt.Errorf("unknown empty query policy %q", s)
	}
}

// DefaultMinFieldScore is the noise gate below which a field does not count as a match.
const DefaultMinFieldScore = 0.1

// Profile holds the per-call-site ranking parameters.
type Profile struct {
	Name           string
	PriorityWeight float64
	MinFieldScore  float64
	EmptyQuery     EmptyQueryPolicy
}

// NoteProfile is used by note search: titles count double and a blank
// query returns nothing.
func NoteProfile() Profile {
	return Profile{
		Name:           "notes",
		PriorityWeight: 2.0,
		MinFieldScore:  DefaultMinFieldScore,
		EmptyQuery:     ReturnNone,
	}
}

// FlashcardSetProfile is used by flashcard set search: titles weigh 2.5x
// and a blank query returns the whole set.
func FlashcardSetProfile() Profile {
	return Profile{
		Name:           "flashcardSets",
		PriorityWeight: 2.5,
		MinFieldScore:  DefaultMinFieldScore,
		EmptyQuery:     ReturnAll,
	}
}

// Scorer turns token matches into field and document scores.
type Scorer struct {
	Profile   Profile
	Matcher   Matcher
	StopWords StopWords
}

// ScoreField averages the token score of every query token against the field.
func (s Scorer) ScoreField(queryTokens, fieldTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	total := 0.0
	for _, q := range queryTokens {
		total += s.Matcher.ScoreToken(q, fieldTokens)
	}
	return total / float64(len(queryTokens))
}

// ScoreDocument scores a record against already normalized query tokens.
// A priority field above the gate wins outright and is weighted; otherwise
// the best secondary field above the gate is reported unweighted.
func (s Scorer) ScoreDocument(queryTokens []string, record Record) ScoredRecord {
	scored := ScoredRecord{Record: record, MatchSource: MatchNone}

	priority := s.ScoreField(queryTokens, Normalize(record.Priority.Text, s.StopWords))
	if priority > s.Profile.MinFieldScore {
		scored.Score = priority * s.Profile.PriorityWeight
		scored.MatchSource = sourceOf(record.Priority, "priority")
		return scored
	}

	best := 0.0
	for _, field := range record.Secondary {
		score := s.ScoreField(queryTokens, Normalize(field.Text, s.StopWords))
		if score > s.Profile.MinFieldScore && score > best {
			best = score
			scored.Score = score
			scored.MatchSource = sourceOf(field, "secondary")
		}
	}
	return scored
}

func sourceOf(f Field, fallback string) MatchSource {
	if f.Name == "" {
		return MatchSource(fallback)
	}
	return MatchSource(f.Name)
}
