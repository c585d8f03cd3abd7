package worker_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydesk/backend/internal/config"
	"github.com/studydesk/backend/internal/worker"
)

func init() {
	// Set log level to warn to reduce noise during tests
	logrus.SetLevel(logrus.WarnLevel)
}

const flashcardCandidates = `[
	{"id":"1","title":"Biology 101","description":"cells"},
	{"id":"2","title":"French verbs","description":"conjugation"}
]`

func newWorker(t *testing.T, cfg config.WorkerConfig) *worker.Worker {
	t.Helper()
	engines, err := worker.NewEngines(config.Load().Search, nil)
	require.NoError(t, err)
	return worker.New(cfg, engines, nil)
}

func defaultWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		RequestQueueSize: 8,
		RequestTimeout:   5 * time.Second,
		DropSuperseded:   true,
	}
}

type result struct {
	ID          json.RawMessage `json:"id"`
	Score       float64         `json:"score"`
	MatchSource string          `json:"matchSource"`
}

func decodeResults(t *testing.T, raw []byte) []result {
	t.Helper()
	var out []result
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestNewEngines(t *testing.T) {
	engines, err := worker.NewEngines(config.Load().Search, nil)
	require.NoError(t, err)
	require.Len(t, engines, 2)
	assert.Equal(t, 2.0, engines[worker.KindNotes].Profile().PriorityWeight)
	assert.Equal(t, 2.5, engines[worker.KindFlashcardSets].Profile().PriorityWeight)

	cfg := config.Load().Search
	cfg.NoteEmptyQuery = "everything"
	_, err = worker.NewEngines(cfg, nil)
	assert.Error(t, err)
}

func TestHandleMessage_FlashcardSets(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())

	out := w.HandleMessage(context.Background(), []byte(`{"kind":"flashcardSets","searchQuery":"bio","candidates":`+flashcardCandidates+`}`))

	results := decodeResults(t, out)
	require.Len(t, results, 1)
	assert.Equal(t, `"1"`, string(results[0].ID))
	assert.InDelta(t, 2.25, results[0].Score, 1e-9)
	assert.Equal(t, "title", results[0].MatchSource)
}

func TestHandleMessage_EmptyQueryPolicies(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())

	sets := w.HandleMessage(context.Background(), []byte(`{"kind":"flashcardSets","searchQuery":"  ","candidates":`+flashcardCandidates+`}`))
	assert.JSONEq(t, flashcardCandidates, string(sets))

	notes := w.HandleMessage(context.Background(), []byte(`{"kind":"notes","searchQuery":"","notes":[{"id":"1","title":"Math"}]}`))
	assert.Equal(t, "[]", string(notes))
}

func TestHandleMessage_NotesWithFolders(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())

	out := w.HandleMessage(context.Background(), []byte(`{
		"kind": "notes",
		"searchQuery": "math",
		"notes": [{"id": 1, "title": "Math Homework", "content": "<p>algebra</p>"}],
		"folders": [{
			"id": "f1", "name": "School",
			"notes": [{"id": 2, "title": "History", "content": "<p>Math in ancient Greece</p>"}],
			"subfolders": [{"id": "f2", "name": "Deep", "notes": [{"id": 3, "title": "Mathematics final"}]}]
		}]
	}`))

	results := decodeResults(t, out)
	require.Len(t, results, 3)
	assert.Equal(t, "1", string(results[0].ID))
	assert.Equal(t, "3", string(results[1].ID))
	assert.Equal(t, "2", string(results[2].ID))
	assert.Equal(t, "content", results[2].MatchSource)
	assert.InDelta(t, 1.8, results[1].Score, 1e-9)
}

func TestHandleMessage_WithoutKind(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())
	items := `[{"id":"1","title":"Math Homework"},{"id":"2","title":"Science Notes"}]`

	sets := decodeResults(t, w.HandleMessage(context.Background(), []byte(`{"searchQuery":"math","candidates":`+items+`}`)))
	require.Len(t, sets, 1)
	assert.Equal(t, `"1"`, string(sets[0].ID))
	assert.Equal(t, "title", sets[0].MatchSource)
	assert.InDelta(t, 2.5, sets[0].Score, 1e-9)

	notes := decodeResults(t, w.HandleMessage(context.Background(), []byte(`{"searchQuery":"math","notes":`+items+`,"folders":[]}`)))
	require.Len(t, notes, 1)
	assert.Equal(t, `"1"`, string(notes[0].ID))
	assert.InDelta(t, 2.0, notes[0].Score, 1e-9)
}

func TestHandleMessage_Malformed(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())

	for _, raw := range []string{
		`not json`,
		`{"kind":"flashcardSets","searchQuery":"x","candidates":"nope"}`,
		`{"kind":"other","searchQuery":"x"}`,
	} {
		assert.Equal(t, "[]", string(w.HandleMessage(context.Background(), []byte(raw))))
	}

	stats := w.GetStatistics()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(3), stats.FailedRequests)
	assert.Equal(t, int64(0), stats.CompletedRequests)

	// a failed request does not break the worker
	out := w.HandleMessage(context.Background(), []byte(`{"kind":"flashcardSets","searchQuery":"bio","candidates":`+flashcardCandidates+`}`))
	assert.Len(t, decodeResults(t, out), 1)
}

func TestHandleMessage_Idempotent(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())
	msg := []byte(`{"kind":"flashcardSets","searchQuery":"bio cells","candidates":` + flashcardCandidates + `}`)

	first := w.HandleMessage(context.Background(), msg)
	second := w.HandleMessage(context.Background(), msg)
	assert.Equal(t, first, second)
}

func TestWorker_Start_Stop(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())
	assert.False(t, w.IsRunning())

	err := w.Submit([]byte(`{"kind":"notes","searchQuery":"x"}`), func(worker.Response) {})
	assert.ErrorIs(t, err, worker.ErrNotRunning)

	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start())

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.ErrorIs(t, w.Stop(), worker.ErrNotRunning)
}

func TestWorker_Submit(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())
	require.NoError(t, w.Start())
	defer w.Stop()

	responses := make(chan worker.Response, 2)
	callback := func(resp worker.Response) { responses <- resp }

	require.NoError(t, w.Submit([]byte(`{"kind":"flashcardSets","seq":1,"searchQuery":"bio","candidates":`+flashcardCandidates+`}`), callback))
	require.NoError(t, w.Submit([]byte(`garbage`), callback))

	first := <-responses
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, worker.KindFlashcardSets, first.Kind)
	assert.False(t, first.Superseded)
	assert.Len(t, decodeResults(t, first.Results), 1)

	second := <-responses
	assert.Equal(t, "[]", string(second.Results))
	assert.NotEmpty(t, second.Error)

	stats := w.GetStatistics()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.CompletedRequests)
	assert.Equal(t, int64(1), stats.FailedRequests)
	require.Contains(t, stats.KindStats, worker.KindFlashcardSets)
	assert.Equal(t, int64(1), stats.KindStats[worker.KindFlashcardSets].Matches)
}

// blockWorker submits a request whose callback holds the processing
// goroutine until release is closed.
func blockWorker(t *testing.T, w *worker.Worker) (release chan struct{}) {
	t.Helper()
	entered := make(chan struct{})
	release = make(chan struct{})
	require.NoError(t, w.Submit([]byte(`{"kind":"notes","searchQuery":"x"}`), func(worker.Response) {
		close(entered)
		<-release
	}))
	<-entered
	return release
}

func TestWorker_DropsSupersededRequests(t *testing.T) {
	w := newWorker(t, defaultWorkerConfig())
	require.NoError(t, w.Start())
	defer w.Stop()

	release := blockWorker(t, w)

	responses := make(chan worker.Response, 2)
	callback := func(resp worker.Response) { responses <- resp }
	require.NoError(t, w.Submit([]byte(`{"kind":"flashcardSets","seq":1,"searchQuery":"bi","candidates":`+flashcardCandidates+`}`), callback))
	require.NoError(t, w.Submit([]byte(`{"kind":"flashcardSets","seq":2,"searchQuery":"bio","candidates":`+flashcardCandidates+`}`), callback))
	close(release)

	stale := <-responses
	assert.Equal(t, uint64(1), stale.Seq)
	assert.True(t, stale.Superseded)
	assert.Equal(t, "[]", string(stale.Results))

	latest := <-responses
	assert.Equal(t, uint64(2), latest.Seq)
	assert.False(t, latest.Superseded)
	assert.Len(t, decodeResults(t, latest.Results), 1)

	assert.Equal(t, int64(1), w.GetStatistics().SupersededRequests)
}

func TestWorker_KeepsSupersededWhenDisabled(t *testing.T) {
	cfg := defaultWorkerConfig()
	cfg.DropSuperseded = false
	w := newWorker(t, cfg)
	require.NoError(t, w.Start())
	defer w.Stop()

	release := blockWorker(t, w)

	responses := make(chan worker.Response, 2)
	callback := func(resp worker.Response) { responses <- resp }
	require.NoError(t, w.Submit([]byte(`{"kind":"flashcardSets","seq":1,"searchQuery":"bio","candidates":`+flashcardCandidates+`}`), callback))
	require.NoError(t, w.Submit([]byte(`{"kind":"flashcardSets","seq":2,"searchQuery":"bio","candidates":`+flashcardCandidates+`}`), callback))
	close(release)

	for _, seq := range []uint64{1, 2} {
		resp := <-responses
		assert.Equal(t, seq, resp.Seq)
		assert.False(t, resp.Superseded)
		assert.Len(t, decodeResults(t, resp.Results), 1)
	}
}

func TestWorker_RequestTimeout(t *testing.T) {
	cfg := defaultWorkerConfig()
	cfg.RequestTimeout = time.Nanosecond
	w := newWorker(t, cfg)
	require.NoError(t, w.Start())
	defer w.Stop()

	candidates := make([]map[string]string, 2000)
	for i := range candidates {
		candidates[i] = map[string]string{"id": strconv.Itoa(i), "title": "Biology chapter " + strconv.Itoa(i)}
	}
	encoded, err := json.Marshal(candidates)
	require.NoError(t, err)

	responses := make(chan worker.Response, 1)
	require.NoError(t, w.Submit([]byte(`{"searchQuery":"biology","candidates":`+string(encoded)+`}`), func(resp worker.Response) {
		responses <- resp
	}))

	resp := <-responses
	assert.Equal(t, "[]", string(resp.Results))
	assert.Contains(t, resp.Error, context.DeadlineExceeded.Error())

	stats := w.GetStatistics()
	assert.Equal(t, int64(1), stats.FailedRequests)
	assert.Equal(t, int64(0), stats.CompletedRequests)
}

func TestWorker_QueueFull(t *testing.T) {
	cfg := defaultWorkerConfig()
	cfg.RequestQueueSize = 1
	w := newWorker(t, cfg)
	require.NoError(t, w.Start())

	release := blockWorker(t, w)

	queued := make(chan worker.Response, 1)
	require.NoError(t, w.Submit([]byte(`{"kind":"notes","searchQuery":"x"}`), func(resp worker.Response) { queued <- resp }))

	err := w.Submit([]byte(`{"kind":"notes","searchQuery":"y"}`), func(worker.Response) {})
	assert.ErrorIs(t, err, worker.ErrQueueFull)

	close(release)
	<-queued
	require.NoError(t, w.Stop())
}
