package worker_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydesk/backend/internal/worker"
)

func TestTracker(t *testing.T) {
	var tr worker.Tracker
	assert.Equal(t, uint64(0), tr.Latest())

	first := tr.Next()
	assert.True(t, tr.Accept(first))

	second := tr.Next()
	assert.Greater(t, second, first)
	assert.False(t, tr.Accept(first))
	assert.True(t, tr.Accept(second))
	assert.Equal(t, second, tr.Latest())
}

func TestTracker_Concurrent(t *testing.T) {
	var tr worker.Tracker
	var wg sync.WaitGroup
	seen := make(chan uint64, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- tr.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]bool)
	for seq := range seen {
		unique[seq] = true
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, uint64(100), tr.Latest())
}

func TestTracker_DiscardsStaleWorkerResponses(t *testing.T) {
	cfg := defaultWorkerConfig()
	cfg.DropSuperseded = false
	w := newWorker(t, cfg)
	require.NoError(t, w.Start())
	defer w.Stop()

	release := blockWorker(t, w)

	var tr worker.Tracker
	responses := make(chan worker.Response, 2)
	for _, query := range []string{"bi", "bio"} {
		msg := fmt.Sprintf(`{"seq":%d,"searchQuery":%q,"candidates":%s}`, tr.Next(), query, flashcardCandidates)
		require.NoError(t, w.Submit([]byte(msg), func(resp worker.Response) { responses <- resp }))
	}
	close(release)

	var accepted []uint64
	for i := 0; i < 2; i++ {
		if resp := <-responses; tr.Accept(resp.Seq) {
			accepted = append(accepted, resp.Seq)
		}
	}
	assert.Equal(t, []uint64{2}, accepted)
}
