package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/studydesk/backend/internal/worker"
)

const maxMessageSize = 64 * 1024 * 1024

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer search requests read line by line from stdin",
		Long: `Run the search worker over standard input and output.

Each input line is one JSON request:

  {"kind":"flashcardSets","seq":1,"searchQuery":"bio","candidates":[...]}
  {"kind":"notes","seq":2,"searchQuery":"math","notes":[...],"folders":[...]}

Each output line is one response: {"seq":1,"kind":"...","results":[...]}.
Responses come back in request order. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
}

func (a *app) runServe(c *cobra.Command, _ []string) error {
	engines, err := worker.NewEngines(a.cfg.Search, a.logger.WithField("component", "search_engine"))
	if err != nil {
		return err
	}

	w := worker.New(a.cfg.Worker, engines, a.logger.WithField("component", "search_worker"))
	if err := w.Start(); err != nil {
		return err
	}

	var (
		outMu   sync.Mutex
		pending sync.WaitGroup
	)
	write := func(resp worker.Response) {
		line, err := json.Marshal(resp)
		if err != nil {
			a.logger.WithError(err).Error("Failed to encode response")
			return
		}
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintln(a.out, string(line))
	}

	scanner := bufio.NewScanner(a.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		msg := append([]byte(nil), scanner.Bytes()...)

		pending.Add(1)
		for {
			err = w.Submit(msg, func(resp worker.Response) {
				defer pending.Done()
				write(resp)
			})
			if !errors.Is(err, worker.ErrQueueFull) {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		if err != nil {
			pending.Done()
			write(worker.Response{Results: json.RawMessage("[]"), Error: err.Error()})
		}
	}
	scanErr := scanner.Err()

	pending.Wait()
	stats := w.GetStatistics()
	a.logger.WithField("requests", stats.TotalRequests).
		WithField("failed", stats.FailedRequests).
		WithField("superseded", stats.SupersededRequests).
		Info("Input closed")

	if err := w.Stop(); err != nil {
		return err
	}
	if scanErr != nil {
		return fmt.Errorf("read requests: %w", scanErr)
	}
	return nil
}
