package taskqueue

import "sync/atomic"

// Worker is the handle of a worker goroutine returned by Queue.Start.
type Worker struct {
	q      *Queue
	done   chan struct{}
	joined atomic.Bool
}

// Join blocks until the worker has drained the queue and stopped. Shutdown
// must have been initiated first, otherwise Join returns
// ErrJoinBeforeShutdown without waiting on the worker. If a Shutdown is
// still draining, Join waits for its outcome; an abandoned Shutdown also
// yields ErrJoinBeforeShutdown. Only the first successful call waits; later
// calls return ErrAlreadyJoined.
func (w *Worker) Join() error {
	if !w.q.awaitShutdown() {
		return ErrJoinBeforeShutdown
	}
	if !w.joined.CompareAndSwap(false, true) {
		return ErrAlreadyJoined
	}
	<-w.done
	return nil
}

// Done returns a channel that is closed when the worker stops.
func (w *Worker) Done() <-chan struct{} { return w.done }
