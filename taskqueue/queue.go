package taskqueue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/grailbio/base/sync/ctxsync"
)

// Task is a deferred unit of work. A non-nil error marks the task as failed;
// the worker reports it and moves on.
type Task func() error

// Func adapts a function with no result to a Task.
func Func(fn func()) Task {
	if fn == nil {
		return nil
	}
	return func() error {
		fn()
		return nil
	}
}

type entry struct {
	id   uint64
	task Task
}

// Queue is a FIFO of tasks consumed by a single worker.
type Queue struct {
	ctx  context.Context
	name string
	opts Options
	obs  Observer

	// mu guards every field below. cond is waited on by the worker (for
	// work or shutdown) and by Shutdown (for an empty queue), so it is
	// always broadcast.
	mu        sync.Mutex
	cond      *ctxsync.Cond
	tasks     deque.Deque[entry]
	accepting bool
	draining  int
	started   bool
	nextID    uint64
}

// New returns an empty queue that accepts tasks. ctx is passed to observer
// hooks; it does not cancel anything.
func New(ctx context.Context, optFns ...Option) *Queue {
	if ctx == nil {
		ctx = context.Background()
	}
	q := &Queue{ctx: ctx, opts: defaultOptions(), accepting: true}
	for _, fn := range optFns {
		fn(&q.opts)
	}
	q.name = q.opts.Name
	if q.name == "" {
		q.name = defaultName()
	}
	q.obs = q.opts.Observer
	q.cond = ctxsync.NewCond(&q.mu)
	return q
}

// Name returns the queue name given by WithName or generated by New.
func (q *Queue) Name() string { return q.name }

// Context returns the context given to New.
func (q *Queue) Context() context.Context { return q.ctx }

// Submit appends t to the tail of the queue and wakes the worker. It fails
// with ErrClosed once Shutdown has stopped the queue from accepting work;
// a task accepted before that point is guaranteed to run.
func (q *Queue) Submit(t Task) error {
	if t == nil {
		return ErrNilTask
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.accepting {
		return ErrClosed
	}
	q.nextID++
	q.tasks.PushBack(entry{id: q.nextID, task: t})
	if q.obs != nil {
		q.obs.TaskSubmitted(q.ctx, q.nextID)
	}
	q.cond.Broadcast()
	return nil
}

// Run attaches the calling goroutine as the queue's worker and processes
// tasks until the queue is drained and closed. It returns ErrWorkerStarted
// if a worker was already attached.
func (q *Queue) Run() error {
	if err := q.attach(); err != nil {
		return err
	}
	q.loop()
	return nil
}

// Start runs the worker on a new goroutine and returns its handle.
func (q *Queue) Start() (*Worker, error) {
	if err := q.attach(); err != nil {
		return nil, err
	}
	w := &Worker{q: q, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		q.loop()
	}()
	return w, nil
}

func (q *Queue) attach() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return ErrWorkerStarted
	}
	q.started = true
	return nil
}

func (q *Queue) loop() {
	var executed uint64
	for {
		e, ok := q.next()
		if !ok {
			break
		}
		q.execute(e)
		executed++

		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	}
	if q.obs != nil {
		q.obs.WorkerStopped(q.ctx, executed)
	}
}

// next blocks until there is a task to run or the queue is drained and
// closed, in which case ok is false.
func (q *Queue) next() (e entry, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.tasks.Len() == 0 && q.accepting {
		// The background context never ends, so Wait only returns once
		// woken.
		_ = q.cond.Wait(context.Background())
	}
	if q.tasks.Len() == 0 {
		return entry{}, false
	}
	return q.tasks.PopFront(), true
}

func (q *Queue) execute(e entry) {
	var start time.Time
	if q.obs != nil {
		start = time.Now()
		q.obs.TaskStarted(q.ctx, e.id)
	}
	panicked, err := q.call(e)
	if err != nil && q.opts.ErrorHandler != nil {
		q.opts.ErrorHandler(e.id, err)
	}
	if q.obs != nil {
		q.obs.TaskFinished(q.ctx, e.id, time.Since(start), err, panicked)
	}
}

func (q *Queue) call(e entry) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if !q.opts.PanicAsError {
				if q.obs != nil {
					q.obs.TaskFinished(q.ctx, e.id, 0, nil, true)
				}
				panic(r)
			}
			panicked = true
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return false, e.task()
}

// Shutdown waits until the queue is observed empty, then stops accepting
// tasks and wakes the worker so it can exit. If ctx ends first, Shutdown
// returns the context's error and the queue keeps accepting tasks.
// Calling Shutdown again after it succeeded is a no-op.
//
// Shutdown must not be called from inside a task of the same queue while
// other tasks are pending: the worker is busy running the caller and the
// queue can never drain.
func (q *Queue) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	q.mu.Lock()
	if !q.accepting {
		q.mu.Unlock()
		return nil
	}
	q.draining++
	for q.tasks.Len() > 0 {
		if err := q.cond.Wait(ctx); err != nil {
			q.draining--
			// Wake Joins waiting on this drain; they see accepting is
			// still true.
			q.cond.Broadcast()
			q.mu.Unlock()
			return fmt.Errorf("taskqueue: draining %s: %w", q.name, err)
		}
	}
	q.draining--
	if !q.accepting {
		// A concurrent Shutdown finished first.
		q.mu.Unlock()
		return nil
	}
	q.accepting = false
	q.cond.Broadcast()
	q.mu.Unlock()

	if q.obs != nil {
		q.obs.ShutdownInitiated(q.ctx, time.Since(start))
	}
	return nil
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Len()
}

// Accepting reports whether Submit still accepts tasks.
func (q *Queue) Accepting() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.accepting
}

// awaitShutdown waits for every in-progress Shutdown to finish or give up
// and reports whether the queue stopped accepting tasks.
func (q *Queue) awaitShutdown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.draining > 0 && q.accepting {
		_ = q.cond.Wait(context.Background())
	}
	return !q.accepting
}
