package taskqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Submit once Shutdown has stopped the queue
	// from accepting tasks.
	ErrClosed = errors.New("taskqueue: queue is closed")
	// ErrNilTask is returned by Submit for a nil task.
	ErrNilTask = errors.New("taskqueue: nil task")
	// ErrWorkerStarted is returned by Run and Start when a worker has
	// already been attached to the queue.
	ErrWorkerStarted = errors.New("taskqueue: worker already started")
	// ErrJoinBeforeShutdown is returned by Join when Shutdown has not been
	// initiated; waiting would never end.
	ErrJoinBeforeShutdown = errors.New("taskqueue: join called before shutdown")
	// ErrAlreadyJoined is returned by every Join after the first.
	ErrAlreadyJoined = errors.New("taskqueue: worker already joined")
)

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the recovered value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
