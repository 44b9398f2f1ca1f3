package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPromiseSettled is returned when a promise is set or failed twice.
var ErrPromiseSettled = errors.New("sampler: promise already settled")

// Promise is the write side of a one-shot value handoff between goroutines.
type Promise[T any] struct {
	mu      sync.Mutex
	settled bool
	done    chan struct{}
	val     T
	err     error
}

// NewPromise returns an unsettled promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Set settles the promise with v.
func (p *Promise[T]) Set(v T) error {
	return p.settle(v, nil)
}

// Fail settles the promise with err.
func (p *Promise[T]) Fail(err error) error {
	var zero T
	return p.settle(zero, err)
}

func (p *Promise[T]) settle(v T, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return ErrPromiseSettled
	}
	p.settled = true
	p.val, p.err = v, err
	close(p.done)
	return nil
}

// Future returns the read side of p. It may be called any number of times.
func (p *Promise[T]) Future() *Future[T] {
	return &Future[T]{p: p}
}

// Future is the read side of a Promise.
type Future[T any] struct {
	p *Promise[T]
}

// Get blocks until the promise is settled or ctx is done.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.p.done:
		return f.p.val, f.p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Ready reports whether Get would return without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.p.done:
		return true
	default:
		return false
	}
}

// Async runs fn on a new goroutine and returns a future for its result. A
// panic in fn fails the future instead of crashing the program.
func Async[T any](fn func() (T, error)) *Future[T] {
	p := NewPromise[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				_ = p.Fail(fmt.Errorf("panic: %v", r))
			}
		}()
		v, err := fn()
		if err != nil {
			_ = p.Fail(err)
			return
		}
		_ = p.Set(v)
	}()
	return p.Future()
}

// SumBelow returns 0 + 1 + ... + (limit-1).
func SumBelow(limit int) int {
	sum := 0
	for i := 0; i < limit; i++ {
		sum += i
	}
	return sum
}
