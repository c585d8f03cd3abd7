package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/studydesk/backend/internal/storage"
)

func (a *app) newSnapshotCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage named corpus snapshots",
	}

	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Store a corpus file as a named snapshot in --data-dir",
		Long: `Read a corpus from --corpus (a .json, .yaml or .yml file) and store it
as <name>.json inside --data-dir, where "query --snapshot <name>" finds it.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runSnapshotSave,
	}
	save.Flags().StringP("corpus", "c", "", "Corpus snapshot file")
	save.Flags().String("data-dir", "./data", "Directory holding named snapshots")
	_ = save.MarkFlagRequired("corpus")

	c.AddCommand(save)
	return c
}

func (a *app) runSnapshotSave(c *cobra.Command, args []string) error {
	path, _ := c.Flags().GetString("corpus")
	dir, _ := c.Flags().GetString("data-dir")

	snapshot, err := storage.LoadFile(path)
	if err != nil {
		return err
	}

	store, err := storage.NewFileStorage(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(args[0], snapshot); err != nil {
		return fmt.Errorf("save snapshot %q: %w", args[0], err)
	}

	a.logger.WithFields(logrus.Fields{
		"snapshot":       args[0],
		"notes":          len(snapshot.Notes),
		"folders":        len(snapshot.Folders),
		"flashcard_sets": len(snapshot.FlashcardSets),
	}).Info("Snapshot saved")
	_, err = fmt.Fprintf(a.out, "saved snapshot %s\n", args[0])
	return err
}
