package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studydesk/backend/internal/corpus"
	"github.com/studydesk/backend/internal/search"
	"github.com/studydesk/backend/internal/storage"
	"github.com/studydesk/backend/internal/worker"
)

func (a *app) newQueryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "query <text>",
		Short: "Rank a corpus snapshot against a query",
		Long: `Rank the notes or flashcard sets of a corpus snapshot against a query
and print the matches as a JSON array, best first.

The snapshot is read either from --corpus (a .json, .yaml or .yml file) or
from --snapshot <name> inside --data-dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runQuery,
	}
	c.Flags().StringP("kind", "k", string(worker.KindNotes), "Record kind to search (notes, flashcardSets)")
	c.Flags().StringP("corpus", "c", "", "Corpus snapshot file")
	c.Flags().String("data-dir", "./data", "Directory holding named snapshots")
	c.Flags().StringP("snapshot", "s", "", "Snapshot name inside --data-dir")
	c.Flags().Bool("pretty", false, "Indent the JSON output")
	return c
}

func (a *app) runQuery(c *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	kind, _ := c.Flags().GetString("kind")
	pretty, _ := c.Flags().GetBool("pretty")

	snapshot, err := a.loadCorpus(c)
	if err != nil {
		return err
	}

	engines, err := worker.NewEngines(a.cfg.Search, a.logger.WithField("component", "search_engine"))
	if err != nil {
		return err
	}

	var records []search.Record
	switch worker.Kind(kind) {
	case worker.KindNotes:
		records = snapshot.NoteRecords()
	case worker.KindFlashcardSets:
		records = snapshot.FlashcardSetRecords()
	default:
		return fmt.Errorf("unknown kind %q (valid: %s, %s)", kind, worker.KindNotes, worker.KindFlashcardSets)
	}

	results, err := engines[worker.Kind(kind)].Search(c.Context(), query, records)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	encoded, err := worker.EncodeResults(results)
	if err != nil {
		return err
	}
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, encoded, "", "  "); err != nil {
			return err
		}
		encoded = buf.Bytes()
	}

	a.logger.WithField("matches", len(results)).Debug("Query finished")
	_, err = fmt.Fprintln(a.out, string(encoded))
	return err
}

func (a *app) loadCorpus(c *cobra.Command) (*corpus.Corpus, error) {
	path, _ := c.Flags().GetString("corpus")
	if path != "" {
		return storage.LoadFile(path)
	}

	name, _ := c.Flags().GetString("snapshot")
	if name == "" {
		return nil, fmt.Errorf("either --corpus or --snapshot is required")
	}
	dir, _ := c.Flags().GetString("data-dir")
	store, err := storage.NewFileStorage(dir)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Get(name)
}
