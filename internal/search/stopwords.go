package search

// defaultStopWords are low-information English function words.
var defaultStopWords = []string{
	"a", "also", "an", "and", "are", "as", "at", "be", "because", "been",
	"but", "by", "for", "from", "has", "have", "however", "if", "in", "is",
	"not", "of", "on", "or", "so", "than", "that", "the", "their", "there",
	"these", "this", "to", "was", "were", "whatever", "whether", "which", "with", "would",
}

// StopWords is an immutable set of tokens removed before matching.
// The zero value is an empty set.
type StopWords struct {
	words map[string]struct{}
}

// NewStopWords builds a set from words.
func NewStopWords(words ...string) StopWords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return StopWords{words: set}
}

// DefaultStopWords returns the built-in English list.
func DefaultStopWords() StopWords {
	return NewStopWords(defaultStopWords...)
}

// Contains reports whether token is a stop word.
func (s StopWords) Contains(token string) bool {
	_, ok := s.words[token]
	return ok
}

// Len returns the number of words in the set.
func (s StopWords) Len() int {
	return len(s.words)
}

// Remove filters stop words out of tokens. Sequences of zero or one token
// are returned unchanged so a single-word query is never wiped out. With
// more than one token the result may be empty if every token is a stop
// word. The input slice is never modified.
func (s StopWords) Remove(tokens []string) []string {
	if len(tokens) <= 1 {
		return tokens
	}

	kept := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !s.Contains(t) {
			kept = append(kept, t)
		}
	}
	return kept
}

var builtinStopWords = DefaultStopWords()

// RemoveStopWords filters tokens against the built-in list.
func RemoveStopWords(tokens []string) []string {
	return builtinStopWords.Remove(tokens)
}
