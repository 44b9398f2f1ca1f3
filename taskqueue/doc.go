// Package taskqueue provides a FIFO task queue serviced by a single worker
// goroutine, with a two-phase shutdown: drain, then stop.
//
// Producers call Submit from any goroutine. One worker, started with Start
// (or by calling Run on a goroutine the caller owns), pops tasks in
// submission order and runs each one with the queue lock released, so a task
// may submit more work to its own queue. Shutdown waits until the queue is
// observed empty, then stops accepting tasks; the worker exits once it sees
// an empty queue that no longer accepts work. Join waits for that exit.
//
// Lifecycle:
//
//	q := taskqueue.New(ctx)
//	w, _ := q.Start()
//	_ = q.Submit(func() error { ... })
//	_ = q.Shutdown(ctx)
//	_ = w.Join()
//
// Join must be called exactly once per worker, after Shutdown has been
// initiated. Joining first would block forever, so Join reports
// ErrJoinBeforeShutdown instead; a second Join reports ErrAlreadyJoined.
// A worker that is never joined leaks nothing once it has stopped, but
// skipping Join hides whether it stopped at all; tests in this module check
// for that with goleak.
//
// A task that returns an error or panics does not stop the worker. The
// failure goes to the handler set with WithErrorHandler and to the
// Observer; panics become *PanicError values unless WithPanicAsError(false)
// is set.
//
// The queue has exactly one consumer. Supporting several workers would not
// change Submit or Shutdown, but every worker would have to agree that the
// queue is drained before any of them exits.
package taskqueue
