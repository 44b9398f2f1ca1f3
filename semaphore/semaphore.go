package semaphore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/grailbio/base/sync/ctxsync"
)

// ErrNegativeCount is returned by New when the initial count is below zero.
var ErrNegativeCount = errors.New("semaphore: negative initial count")

// Semaphore is a counting semaphore. It must not be copied after first use.
type Semaphore struct {
	mu    sync.Mutex
	count int

	// cond wakes plain Wait callers one at a time. ctxCond is broadcast on
	// every Notify while WaitContext callers are parked; each re-checks count.
	cond       *sync.Cond
	ctxCond    *ctxsync.Cond
	ctxWaiters int
}

// New returns a semaphore holding count permits.
func New(count int) (*Semaphore, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeCount, count)
	}
	s := &Semaphore{count: count}
	s.cond = sync.NewCond(&s.mu)
	s.ctxCond = ctxsync.NewCond(&s.mu)
	return s, nil
}

// MustNew is like New but panics on a negative count.
func MustNew(count int) *Semaphore {
	s, err := New(count)
	if err != nil {
		panic(err)
	}
	return s
}

// Wait blocks until a permit is available and takes it.
func (s *Semaphore) Wait() {
	s.mu.Lock()
	for s.count == 0 {
		s.cond.Wait()
	}
	s.count--
	s.mu.Unlock()
}

// WaitContext is like Wait but gives up when ctx is done. It returns nil if a
// permit was taken and ctx.Err() otherwise; no permit is held on error.
func (s *Semaphore) WaitContext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 0 {
		s.count--
		return nil
	}
	s.ctxWaiters++
	defer func() { s.ctxWaiters-- }()
	for s.count == 0 {
		if err := s.ctxCond.Wait(ctx); err != nil {
			return err
		}
	}
	s.count--
	return nil
}

// TryWait takes a permit if one is available and reports whether it did.
func (s *Semaphore) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return false
	}
	s.count--
	return true
}

// Notify returns a permit and wakes one blocked waiter, if any. It never
// blocks beyond acquiring the internal mutex.
func (s *Semaphore) Notify() {
	s.mu.Lock()
	s.count++
	s.cond.Signal()
	if s.ctxWaiters > 0 {
		s.ctxCond.Broadcast()
	}
	s.mu.Unlock()
}

// Available returns the number of permits at the time of the call. The value
// may be stale by the time it is used; it is meant for metrics and tests.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// String implements fmt.Stringer.
func (s *Semaphore) String() string {
	return fmt.Sprintf("Semaphore(%d available)", s.Available())
}
