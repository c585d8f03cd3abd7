// Package corpus holds the study records that feed the search engine:
// notes filed in a folder tree, and flashcard sets.
package corpus

import (
	"github.com/studydesk/backend/internal/search"
)

// Field names reported as the match source.
const (
	FieldTitle       = "title"
	FieldContent     = "content"
	FieldDescription = "description"
)

// Note is a rich-text note. Content may contain HTML markup.
type Note struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Content  string `json:"content" yaml:"content"`
	FolderID string `json:"folderId,omitempty" yaml:"folderId,omitempty"`
}

// Flashcard is a single term/definition pair.
type Flashcard struct {
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition" yaml:"definition"`
}

// FlashcardSet is a titled deck of flashcards.
type FlashcardSet struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Cards       []Flashcard `json:"cards,omitempty" yaml:"cards,omitempty"`
}

// Folder is a node of the note tree. N is the note representation, which
// lets the same walk serve typed notes and raw wire payloads.
type Folder[N any] struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Notes      []N         `json:"notes,omitempty" yaml:"notes,omitempty"`
	Subfolders []Folder[N] `json:"subfolders,omitempty" yaml:"subfolders,omitempty"`
}

// Corpus is everything a user can search.
type Corpus struct {
	Notes         []Note         `json:"notes,omitempty" yaml:"notes,omitempty"`
	Folders       []Folder[Note] `json:"folders,omitempty" yaml:"folders,omitempty"`
	FlashcardSets []FlashcardSet `json:"flashcardSets,omitempty" yaml:"flashcardSets,omitempty"`
}

// Flatten returns notes followed by every note in the folder tree, walking
// depth first with a folder's own notes before its subfolders. Each note
// in the tree appears exactly once.
func Flatten[N any](notes []N, folders []Folder[N]) []N {
	out := make([]N, 0, len(notes))
	out = append(out, notes...)
	var walk func([]Folder[N])
	walk = func(level []Folder[N]) {
		for _, f := range level {
			out = append(out, f.Notes...)
			walk(f.Subfolders)
		}
	}
	walk(folders)
	return out
}

// NoteRecord converts a note to a search record. The note itself is the payload.
func NoteRecord(n Note) search.Record {
	return search.Record{
		ID:        n.ID,
		Priority:  search.Field{Name: FieldTitle, Text: n.Title},
		Secondary: []search.Field{{Name: FieldContent, Text: n.Content}},
		Payload:   n,
	}
}

// FlashcardSetRecord converts a flashcard set to a search record.
func FlashcardSetRecord(s FlashcardSet) search.Record {
	return search.Record{
		ID:        s.ID,
		Priority:  search.Field{Name: FieldTitle, Text: s.Title},
		Secondary: []search.Field{{Name: FieldDescription, Text: s.Description}},
		Payload:   s,
	}
}

// NoteRecords flattens the corpus note tree into search records.
func (c *Corpus) NoteRecords() []search.Record {
	notes := Flatten(c.Notes, c.Folders)
	records := make([]search.Record, len(notes))
	for i, n := range notes {
		records[i] = NoteRecord(n)
	}
	return records
}

// FlashcardSetRecords converts every flashcard set into a search record.
func (c *Corpus) FlashcardSetRecords() []search.Record {
	records := make([]search.Record, len(c.FlashcardSets))
	for i, s := range c.FlashcardSets {
		records[i] = FlashcardSetRecord(s)
	}
	return records
}
