package worker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/studydesk/backend/internal/corpus"
	"github.com/studydesk/backend/internal/search"
)

// Kind selects the call site a request belongs to.
type Kind string

const (
	KindNotes         Kind = "notes"
	KindFlashcardSets Kind = "flashcardSets"
)

var (
	// ErrMalformedRequest is returned for payloads that cannot be searched.
	ErrMalformedRequest = errors.New("malformed request")

	emptyResults = json.RawMessage("[]")
)

// Request is a search message. Flashcard set searches carry Candidates;
// note searches carry Notes plus a Folders tree that is flattened before
// scoring. Seq is an optional caller-assigned sequence number.
type Request struct {
	Kind        Kind            `json:"kind"`
	Seq         uint64          `json:"seq,omitempty"`
	SearchQuery string          `json:"searchQuery"`
	Candidates  json.RawMessage `json:"candidates,omitempty"`
	Notes       json.RawMessage `json:"notes,omitempty"`
	Folders     json.RawMessage `json:"folders,omitempty"`
}

// Response answers a queued Request. Results is always a JSON array.
type Response struct {
	Seq        uint64          `json:"seq"`
	Kind       Kind            `json:"kind,omitempty"`
	Results    json.RawMessage `json:"results"`
	Superseded bool            `json:"superseded,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// wireRecord picks the searchable fields out of a raw note or flashcard set.
type wireRecord struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Description string          `json:"description"`
}

// DecodeRequest parses and validates a raw request message. Without an
// explicit kind, a message carrying notes or folders is a note search and
// one carrying candidates is a flashcard set search.
func DecodeRequest(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if req.Kind == "" {
		req.Kind = inferKind(&req)
	}
	switch req.Kind {
	case "":
		return nil, fmt.Errorf("%w: no kind and no notes, folders or candidates", ErrMalformedRequest)
	case KindNotes, KindFlashcardSets:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedRequest, req.Kind)
	}
	return &req, nil
}

func inferKind(req *Request) Kind {
	switch {
	case !isAbsent(req.Notes) || !isAbsent(req.Folders):
		return KindNotes
	case !isAbsent(req.Candidates):
		return KindFlashcardSets
	default:
		return ""
	}
}

// Records turns the request payload into search records. Each record's
// payload is the caller's raw JSON object.
func (r *Request) Records() ([]search.Record, error) {
	switch r.Kind {
	case KindNotes:
		notes, err := decodeArray(r.Notes, "notes")
		if err != nil {
			return nil, err
		}
		var folders []corpus.Folder[json.RawMessage]
		if !isAbsent(r.Folders) {
			if !isArray(r.Folders) {
				return nil, fmt.Errorf("%w: folders must be an array", ErrMalformedRequest)
			}
			if err := json.Unmarshal(r.Folders, &folders); err != nil {
				return nil, fmt.Errorf("%w: folders: %v", ErrMalformedRequest, err)
			}
		}
		return toRecords(corpus.Flatten(notes, folders), corpus.FieldContent)

	case KindFlashcardSets:
		sets, err := decodeArray(r.Candidates, "candidates")
		if err != nil {
			return nil, err
		}
		return toRecords(sets, corpus.FieldDescription)

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedRequest, r.Kind)
	}
}

func toRecords(raws []json.RawMessage, secondary string) ([]search.Record, error) {
	records := make([]search.Record, len(raws))
	for i, raw := range raws {
		var w wireRecord
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedRequest, i, err)
		}
		text := w.Content
		if secondary == corpus.FieldDescription {
			text = w.Description
		}
		records[i] = search.Record{
			ID:        rawID(w.ID),
			Priority:  search.Field{Name: corpus.FieldTitle, Text: w.Title},
			Secondary: []search.Field{{Name: secondary, Text: text}},
			Payload:   raw,
		}
	}
	return records, nil
}

// EncodeResults renders scored records as a JSON array. Scored records are
// the caller's object with score and matchSource added; unscored ones are
// emitted as received, without score fields.
func EncodeResults(results []search.ScoredRecord) (json.RawMessage, error) {
	out := make([]json.RawMessage, len(results))
	for i, r := range results {
		raw, err := payloadJSON(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode record %q: %w", r.ID, err)
		}
		if r.MatchSource == "" {
			out[i] = raw
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("encode record %q: %w", r.ID, err)
		}
		if obj == nil {
			obj = make(map[string]json.RawMessage, 2)
		}
		obj["score"] = json.RawMessage(strconv.FormatFloat(r.Score, 'g', -1, 64))
		source, _ := json.Marshal(string(r.MatchSource))
		obj["matchSource"] = source

		if out[i], err = json.Marshal(obj); err != nil {
			return nil, fmt.Errorf("encode record %q: %w", r.ID, err)
		}
	}
	return json.Marshal(out)
}

func payloadJSON(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	default:
		return json.Marshal(p)
	}
}

func decodeArray(raw json.RawMessage, name string) ([]json.RawMessage, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	if !isArray(raw) {
		return nil, fmt.Errorf("%w: %s must be an array", ErrMalformedRequest, name)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRequest, name, err)
	}
	return items, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// rawID accepts string and numeric ids.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
