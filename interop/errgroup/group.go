// Package errgroup provides an errgroup whose goroutines each hold a permit
// of a semaphore.Semaphore while they run. It wraps golang.org/x/sync/errgroup
// and keeps its semantics: the first error cancels the group's context and is
// returned by Wait.
package errgroup

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/go-semq/semaphore"
)

// Group is an errgroup.Group gated by a semaphore.
type Group struct {
	g   *errgroup.Group
	ctx context.Context
	sem *semaphore.Semaphore
}

// WithContext creates a Group bound to ctx. A nil sem means no limit. The
// returned context is canceled when a function passed to Go returns a
// non-nil error or when Wait returns.
func WithContext(ctx context.Context, sem *semaphore.Semaphore) (*Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &Group{g: g, ctx: gctx, sem: sem}, gctx
}

// Go starts f on a new goroutine once a permit is available. If the group's
// context ends while waiting, f is skipped and the context error is
// recorded.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	g.g.Go(func() error {
		if g.sem != nil {
			if err := g.sem.WaitContext(g.ctx); err != nil {
				return err
			}
			defer g.sem.Notify()
		}
		return f()
	})
}

// Wait blocks until all functions have returned and returns the first
// non-nil error.
func (g *Group) Wait() error {
	return g.g.Wait()
}
