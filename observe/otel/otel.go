package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Observer is a taskqueue.Observer that annotates the span found in the
// queue's context. Without a recording span every hook is a no-op.
type Observer struct {
	recordSubmit bool
}

// New returns an Observer. Submission events are skipped unless
// recordSubmit is set, since busy queues would flood the span with them.
func New(recordSubmit bool) *Observer { return &Observer{recordSubmit: recordSubmit} }

func (o *Observer) TaskSubmitted(ctx context.Context, id uint64) {
	if !o.recordSubmit {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("task.submitted", trace.WithAttributes(taskID(id)))
}

func (o *Observer) TaskStarted(ctx context.Context, id uint64) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("task.started", trace.WithAttributes(taskID(id)))
}

func (o *Observer) TaskFinished(ctx context.Context, id uint64, dur time.Duration, err error, panicked bool) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("task.finished", trace.WithAttributes(
		taskID(id),
		attribute.Int64("task.duration_us", dur.Microseconds()),
		attribute.Bool("task.panicked", panicked),
	))
	if err != nil {
		span.RecordError(err, trace.WithAttributes(taskID(id)))
		span.SetStatus(codes.Error, "task failed")
	}
}

func (o *Observer) ShutdownInitiated(ctx context.Context, drain time.Duration) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("queue.shutdown", trace.WithAttributes(
		attribute.Int64("queue.drain_us", drain.Microseconds()),
	))
}

func (o *Observer) WorkerStopped(ctx context.Context, executed uint64) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("worker.stopped", trace.WithAttributes(
		attribute.Int64("worker.executed", int64(executed)),
	))
}

func taskID(id uint64) attribute.KeyValue {
	return attribute.Int64("task.id", int64(id))
}

// Nop is a taskqueue.Observer that does nothing.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) TaskSubmitted(context.Context, uint64)                            {}
func (*Nop) TaskStarted(context.Context, uint64)                              {}
func (*Nop) TaskFinished(context.Context, uint64, time.Duration, error, bool) {}
func (*Nop) ShutdownInitiated(context.Context, time.Duration)                 {}
func (*Nop) WorkerStopped(context.Context, uint64)                            {}
