package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studydesk/backend/internal/config"
	"github.com/studydesk/backend/internal/search"
)

var (
	ErrNotRunning = errors.New("search worker is not running")
	ErrQueueFull  = errors.New("search worker queue is full")
)

// Worker runs searches off the caller's goroutine. Queued requests are
// processed one at a time, in arrival order, by a single goroutine.
type Worker struct {
	config  config.WorkerConfig
	logger  *logrus.Entry
	engines map[Kind]*search.Engine
	queue   chan *job
	latest  map[Kind]uint64
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex

	stats   Statistics
	statsMu sync.RWMutex
}

// job is a queued request
type job struct {
	id          string
	req         *Request
	decodeErr   error
	callback    func(Response)
	scheduledAt time.Time
}

// Statistics holds worker statistics
type Statistics struct {
	TotalRequests      int64                    `json:"total_requests"`
	CompletedRequests  int64                    `json:"completed_requests"`
	FailedRequests     int64                    `json:"failed_requests"`
	SupersededRequests int64                    `json:"superseded_requests"`
	KindStats          map[Kind]*KindStatistics `json:"kind_stats"`
	StartTime          time.Time                `json:"start_time"`
}

// KindStatistics holds per call site statistics
type KindStatistics struct {
	Kind         Kind          `json:"kind"`
	Requests     int64         `json:"requests"`
	Matches      int64         `json:"matches"`
	LastDuration time.Duration `json:"last_duration"`
}

// New creates a worker serving the given engines.
func New(cfg config.WorkerConfig, engines map[Kind]*search.Engine, logger *logrus.Entry) *Worker {
	if logger == nil {
		logger = logrus.WithField("component", "search_worker")
	}
	if cfg.RequestQueueSize <= 0 {
		cfg.RequestQueueSize = 1
	}

	return &Worker{
		config:  cfg,
		logger:  logger,
		engines: engines,
		queue:   make(chan *job, cfg.RequestQueueSize),
		latest:  make(map[Kind]uint64),
		stats: Statistics{
			KindStats: make(map[Kind]*KindStatistics),
			StartTime: time.Now(),
		},
	}
}

// NewEngines builds the note and flashcard set engines from configuration.
func NewEngines(cfg config.SearchConfig, logger *logrus.Entry) (map[Kind]*search.Engine, error) {
	if logger == nil {
		logger = logrus.WithField("component", "search_engine")
	}

	notePolicy, err := search.ParseEmptyQueryPolicy(cfg.NoteEmptyQuery)
	if err != nil {
		return nil, fmt.Errorf("note search: %w", err)
	}
	setPolicy, err := search.ParseEmptyQueryPolicy(cfg.FlashcardSetEmptyQuery)
	if err != nil {
		return nil, fmt.Errorf("flashcard set search: %w", err)
	}

	notes := search.NoteProfile()
	notes.PriorityWeight = cfg.NoteTitleWeight
	notes.MinFieldScore = cfg.MinFieldScore
	notes.EmptyQuery = notePolicy

	sets := search.FlashcardSetProfile()
	sets.PriorityWeight = cfg.FlashcardSetTitleWeight
	sets.MinFieldScore = cfg.MinFieldScore
	sets.EmptyQuery = setPolicy

	build := func(p search.Profile) *search.Engine {
		return search.NewEngine(search.Options{
			Profile:        p,
			MaxCandidates:  cfg.MaxCandidates,
			MaxTokenLength: cfg.MaxTokenLength,
		}, logger)
	}

	return map[Kind]*search.Engine{
		KindNotes:         build(notes),
		KindFlashcardSets: build(sets),
	}, nil
}

// Start starts the processing goroutine
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("search worker is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.requestProcessor(ctx)

	w.logger.Info("Search worker started")
	return nil
}

// Stop stops the worker. Requests still queued are answered with an error.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotRunning
	}
	w.running = false
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Search worker stopped")
		return nil
	case <-time.After(5 * time.Second):
		w.logger.Warn("Search worker stop timed out")
		return fmt.Errorf("stop operation timed out")
	}
}

// IsRunning reports whether Start has been called without a matching Stop.
func (w *Worker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Submit queues a raw request message. callback is invoked exactly once
// from the worker goroutine. A malformed message is still queued so its
// empty answer keeps its place in the response order.
func (w *Worker) Submit(raw []byte, callback func(Response)) error {
	req, decodeErr := DecodeRequest(raw)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return ErrNotRunning
	}

	j := &job{
		id:          uuid.NewString(),
		req:         req,
		decodeErr:   decodeErr,
		callback:    callback,
		scheduledAt: time.Now(),
	}

	select {
	case w.queue <- j:
	default:
		return ErrQueueFull
	}

	if req != nil && req.Seq > w.latest[req.Kind] {
		w.latest[req.Kind] = req.Seq
	}
	w.updateStats(func(stats *Statistics) {
		stats.TotalRequests++
	})
	return nil
}

// HandleMessage answers a raw request synchronously with the ranked JSON
// array. Malformed requests are logged and answered with an empty array.
func (w *Worker) HandleMessage(ctx context.Context, raw []byte) []byte {
	w.updateStats(func(stats *Statistics) {
		stats.TotalRequests++
	})

	id := uuid.NewString()
	req, err := DecodeRequest(raw)
	if err != nil {
		w.fail(id, nil, err)
		return []byte("[]")
	}
	results, err := w.search(ctx, id, req)
	if err != nil {
		w.fail(id, req, err)
		return []byte("[]")
	}
	return results
}

// GetStatistics returns a copy of the current statistics
func (w *Worker) GetStatistics() Statistics {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()

	stats := w.stats
	stats.KindStats = make(map[Kind]*KindStatistics, len(w.stats.KindStats))
	for kind, ks := range w.stats.KindStats {
		copied := *ks
		stats.KindStats[kind] = &copied
	}
	return stats
}

// requestProcessor processes requests from the queue
func (w *Worker) requestProcessor(ctx context.Context) {
	defer w.wg.Done()

	w.logger.Debug("Request processor started")
	defer w.logger.Debug("Request processor stopped")

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case j := <-w.queue:
			w.process(ctx, j)
		}
	}
}

// drain answers every request left in the queue after shutdown
func (w *Worker) drain() {
	for {
		select {
		case j := <-w.queue:
			resp := Response{Results: emptyResults, Error: "search worker stopped"}
			if j.req != nil {
				resp.Seq = j.req.Seq
				resp.Kind = j.req.Kind
			}
			j.callback(resp)
		default:
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, j *job) {
	if j.decodeErr != nil {
		w.fail(j.id, nil, j.decodeErr)
		j.callback(Response{Results: emptyResults, Error: j.decodeErr.Error()})
		return
	}

	resp := Response{Seq: j.req.Seq, Kind: j.req.Kind, Results: emptyResults}
	w.logger.WithFields(logrus.Fields{
		"request_id": j.id,
		"kind":       j.req.Kind,
		"seq":        j.req.Seq,
		"queue_wait": time.Since(j.scheduledAt),
	}).Debug("Processing search request")

	if w.config.DropSuperseded && j.req.Seq != 0 && j.req.Seq < w.latestSeq(j.req.Kind) {
		w.logger.WithFields(logrus.Fields{
			"request_id": j.id,
			"kind":       j.req.Kind,
			"seq":        j.req.Seq,
		}).Debug("Dropping superseded request")
		w.updateStats(func(stats *Statistics) {
			stats.SupersededRequests++
		})
		resp.Superseded = true
		j.callback(resp)
		return
	}

	jobCtx := ctx
	if w.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.config.RequestTimeout)
		defer cancel()
	}

	results, err := w.search(jobCtx, j.id, j.req)
	if err != nil {
		w.fail(j.id, j.req, err)
		resp.Error = err.Error()
		j.callback(resp)
		return
	}

	resp.Results = results
	j.callback(resp)
}

func (w *Worker) search(ctx context.Context, id string, req *Request) (json.RawMessage, error) {
	engine, ok := w.engines[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no engine for kind %q", ErrMalformedRequest, req.Kind)
	}

	records, err := req.Records()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := engine.Search(ctx, req.SearchQuery, records)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.Kind, err)
	}
	encoded, err := EncodeResults(results)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	w.logger.WithFields(logrus.Fields{
		"request_id": id,
		"kind":       req.Kind,
		"seq":        req.Seq,
		"candidates": len(records),
		"matches":    len(results),
		"duration":   elapsed,
	}).Debug("Search request completed")

	w.updateStats(func(stats *Statistics) {
		stats.CompletedRequests++
		ks := stats.KindStats[req.Kind]
		if ks == nil {
			ks = &KindStatistics{Kind: req.Kind}
			stats.KindStats[req.Kind] = ks
		}
		ks.Requests++
		ks.Matches += int64(len(results))
		ks.LastDuration = elapsed
	})
	return encoded, nil
}

func (w *Worker) fail(id string, req *Request, err error) {
	entry := w.logger.WithError(err).WithField("request_id", id)
	if req != nil {
		entry = entry.WithFields(logrus.Fields{"kind": req.Kind, "seq": req.Seq})
	}
	entry.Error("Search request failed")

	w.updateStats(func(stats *Statistics) {
		stats.FailedRequests++
	})
}

func (w *Worker) latestSeq(kind Kind) uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest[kind]
}

// updateStats safely updates statistics
func (w *Worker) updateStats(updateFn func(*Statistics)) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	updateFn(&w.stats)
}
