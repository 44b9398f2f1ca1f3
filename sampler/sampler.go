// Package sampler runs a sequence of small concurrency demos: primes found
// by goroutines sharing one slice, promise/future handoff, async launch,
// scoped locking, a counting semaphore, and a single-worker task queue.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/go-semq/semaphore"
	"github.com/NetPo4ki/go-semq/taskqueue"
)

type RunOption func(*runOptions)

type runOptions struct {
	queueOpts     []taskqueue.Option
	semaphoreHook func(*semaphore.Semaphore)
}

// WithQueueOptions passes opts to the task queue created by Run.
func WithQueueOptions(opts ...taskqueue.Option) RunOption {
	return func(o *runOptions) { o.queueOpts = append(o.queueOpts, opts...) }
}

// WithSemaphoreHook calls fn with the semaphore created by Run before any
// worker uses it, e.g. to register metrics.
func WithSemaphoreHook(fn func(*semaphore.Semaphore)) RunOption {
	return func(o *runOptions) { o.semaphoreHook = fn }
}

// Run executes every section in order, writing results to out.
func Run(ctx context.Context, out io.Writer, cfg Config, optFns ...RunOption) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var opts runOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	primes, err := FindPrimes(ctx, cfg.Primes.Limit, cfg.Primes.Ranges, cfg.Primes.Parallel)
	if err != nil {
		return fmt.Errorf("primes: %w", err)
	}
	fmt.Fprintf(out, "primes up to %d from %d goroutines: %s\n\n",
		cfg.Primes.Limit, cfg.Primes.Ranges, joinInts(primes))

	p := NewPromise[int]()
	go func() { _ = p.Set(SumBelow(cfg.Work.Limit)) }()
	v, err := p.Future().Get(ctx)
	if err != nil {
		return fmt.Errorf("promise: %w", err)
	}
	fmt.Fprintf(out, "value handed over by a promise: %d\n\n", v)

	v, err = Async(func() (int, error) { return SumBelow(cfg.Work.Limit), nil }).Get(ctx)
	if err != nil {
		return fmt.Errorf("async: %w", err)
	}
	fmt.Fprintf(out, "value from an async function: %d\n\n", v)

	limit := cfg.Work.Limit
	v, err = Async(func() (int, error) { return limit * limit, nil }).Get(ctx)
	if err != nil {
		return fmt.Errorf("async closure: %w", err)
	}
	fmt.Fprintf(out, "value from an async closure: %d\n\n", v)

	fmt.Fprintf(out, "%d goroutines printing under one mutex: ", cfg.LockGuard.Goroutines)
	LockGuard(out, cfg.LockGuard.Goroutines)
	fmt.Fprint(out, "\n\n")

	sem, err := semaphore.New(cfg.Semaphore.Permits)
	if err != nil {
		return fmt.Errorf("semaphore: %w", err)
	}
	if opts.semaphoreHook != nil {
		opts.semaphoreHook(sem)
	}
	fmt.Fprintf(out, "%d workers sharing %d permits:\n", cfg.Semaphore.Workers, cfg.Semaphore.Permits)
	peak, err := SemaphoreDemo(ctx, out, sem, cfg.Semaphore.Workers, cfg.Semaphore.Hold)
	if err != nil {
		return fmt.Errorf("semaphore: %w", err)
	}
	fmt.Fprintf(out, "at most %d workers held a permit at once\n\n", peak)

	fmt.Fprintln(out, "task queue with a single worker:")
	if err := TaskQueueDemo(ctx, out, cfg.Tasks, opts.queueOpts...); err != nil {
		return fmt.Errorf("task queue: %w", err)
	}
	return nil
}

// LockGuard starts n goroutines that each write "Thread <id> " to out while
// holding the same mutex, and waits for all of them.
func LockGuard(out io.Writer, n int) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "Thread %d ", i)
		}()
	}
	wg.Wait()
}

// SemaphoreDemo starts workers goroutines that each take a permit from sem,
// report in, hold the permit for hold, and give it back. It returns the
// largest number of workers seen holding a permit at the same time.
func SemaphoreDemo(ctx context.Context, out io.Writer, sem *semaphore.Semaphore, workers int, hold time.Duration) (int, error) {
	var (
		outMu     sync.Mutex
		cur, peak atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			if err := sem.WaitContext(gctx); err != nil {
				return err
			}
			defer sem.Notify()
			c := cur.Add(1)
			defer cur.Add(-1)
			for {
				p := peak.Load()
				if c <= p || peak.CompareAndSwap(p, c) {
					break
				}
			}
			outMu.Lock()
			fmt.Fprintf(out, "Worker %d is working\n", i)
			outMu.Unlock()
			if hold > 0 {
				time.Sleep(hold)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(peak.Load()), nil
}

// TaskQueueDemo submits one task per name, each printing its name, then
// shuts the queue down and joins the worker.
func TaskQueueDemo(ctx context.Context, out io.Writer, names []string, opts ...taskqueue.Option) error {
	q := taskqueue.New(ctx, opts...)
	w, err := q.Start()
	if err != nil {
		return err
	}
	var submitErr error
	for _, name := range names {
		if submitErr = q.Submit(taskqueue.Func(func() { fmt.Fprintln(out, name) })); submitErr != nil {
			break
		}
	}
	// Accepted tasks always run to completion, so the drain is not bounded
	// by ctx; returning early would leak the worker.
	if err := q.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(submitErr, err)
	}
	return errors.Join(submitErr, w.Join())
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " ")
}
