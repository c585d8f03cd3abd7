package worker

import "sync/atomic"

// Tracker is for Go callers that embed a Worker. It hands out increasing
// sequence numbers to put in Request.Seq so that only the answer to the most
// recent request is used; the serve command leaves seq to its clients.
type Tracker struct {
	latest atomic.Uint64
}

// Next returns a new sequence number, which becomes the latest.
func (t *Tracker) Next() uint64 {
	return t.latest.Add(1)
}

// Latest returns the most recently issued sequence number.
func (t *Tracker) Latest() uint64 {
	return t.latest.Load()
}

// Accept reports whether a response for seq is still current.
func (t *Tracker) Accept(seq uint64) bool {
	return seq == t.latest.Load()
}
