package search

// MatchSource names the field that produced a record's score.
type MatchSource string

// MatchNone marks a record that matched nothing and is excluded from results.
const MatchNone MatchSource = "none"

// Field is a named piece of searchable text.
type Field struct {
	Name string
	Text string
}

// Record is a searchable item. Priority is the field users scan first
// (a title); Secondary holds the remaining text fields. Payload is returned
// to the caller untouched.
type Record struct {
	ID        string
	Priority  Field
	Secondary []Field
	Payload   any
}

// ScoredRecord wraps a Record with its relevance. An empty MatchSource means
// the record was passed through without scoring (empty query, ReturnAll).
type ScoredRecord struct {
	Record
	Score       float64
	MatchSource MatchSource
}

// Matched reports whether the record survives filtering.
func (r ScoredRecord) Matched() bool {
	return r.MatchSource != MatchNone
}
