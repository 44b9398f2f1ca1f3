package taskqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Option func(*Options)

type Options struct {
	Name string
	// PanicAsError turns a task panic into a *PanicError instead of
	// re-raising it on the worker goroutine.
	PanicAsError bool
	Observer     Observer
	ErrorHandler func(id uint64, err error)
}

func defaultOptions() Options { return Options{PanicAsError: true} }

func WithName(name string) Option { return func(o *Options) { o.Name = name } }

func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithErrorHandler sets a function called on the worker goroutine for every
// task that returns an error or panics.
func WithErrorHandler(fn func(id uint64, err error)) Option {
	return func(o *Options) { o.ErrorHandler = fn }
}

func defaultName() string {
	return "queue-" + uuid.NewString()[:8]
}

// Observer receives queue lifecycle events. TaskSubmitted is called with the
// queue lock held, so an Observer must not call back into the Queue.
type Observer interface {
	TaskSubmitted(ctx context.Context, id uint64)
	TaskStarted(ctx context.Context, id uint64)
	TaskFinished(ctx context.Context, id uint64, dur time.Duration, err error, panicked bool)
	ShutdownInitiated(ctx context.Context, drain time.Duration)
	WorkerStopped(ctx context.Context, executed uint64)
}

// Observers returns an Observer that forwards every event to each non-nil
// observer in order.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) TaskSubmitted(ctx context.Context, id uint64) {
	for _, o := range m {
		o.TaskSubmitted(ctx, id)
	}
}

func (m multiObserver) TaskStarted(ctx context.Context, id uint64) {
	for _, o := range m {
		o.TaskStarted(ctx, id)
	}
}

func (m multiObserver) TaskFinished(ctx context.Context, id uint64, dur time.Duration, err error, panicked bool) {
	for _, o := range m {
		o.TaskFinished(ctx, id, dur, err, panicked)
	}
}

func (m multiObserver) ShutdownInitiated(ctx context.Context, drain time.Duration) {
	for _, o := range m {
		o.ShutdownInitiated(ctx, drain)
	}
}

func (m multiObserver) WorkerStopped(ctx context.Context, executed uint64) {
	for _, o := range m {
		o.WorkerStopped(ctx, executed)
	}
}
