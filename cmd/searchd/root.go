package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/studydesk/backend/internal/config"
)

// app carries what every subcommand shares.
type app struct {
	in     io.Reader
	out    io.Writer
	cfg    *config.Config
	logger *logrus.Entry
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	root := &cobra.Command{
		Use:           "searchd",
		Short:         "Fuzzy search over study notes and flashcard sets",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.Load()
			if cmd.Flags().Changed("log-level") {
				a.cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
			}
			if cmd.Flags().Changed("log-format") {
				a.cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
			}

			logger, err := newLogger(a.cfg.Log)
			if err != nil {
				return err
			}
			a.logger = logger.WithField("service", "searchd")
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	root.AddCommand(a.newQueryCmd(), a.newServeCmd(), a.newSnapshotCmd())
	return root
}

func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}
	return logger, nil
}
