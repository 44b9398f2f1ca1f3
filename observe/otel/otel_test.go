package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	semqotel "github.com/NetPo4ki/go-semq/observe/otel"
	"github.com/NetPo4ki/go-semq/taskqueue"
)

func TestMain(m *testing.M) {
	// The grailbio logger behind ctxsync starts a flush goroutine on load.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("v.io/x/lib/llog.(*Log).flushDaemon"))
}

func runQueue(t *testing.T, ctx context.Context, obs taskqueue.Observer, tasks ...taskqueue.Task) {
	t.Helper()
	q := taskqueue.New(ctx, taskqueue.WithObserver(obs))
	w, err := q.Start()
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range tasks {
		if err := q.Submit(task); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Join(); err != nil {
		t.Fatal(err)
	}
}

func TestSpanEvents(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("semq").Start(context.Background(), "jobs")
	runQueue(t, ctx, semqotel.New(true),
		taskqueue.Func(func() {}),
		func() error { return errors.New("boom") },
	)
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	counts := map[string]int{}
	for _, ev := range ended[0].Events() {
		counts[ev.Name]++
	}
	want := map[string]int{
		"task.submitted": 2,
		"task.started":   2,
		"task.finished":  2,
		"exception":      1,
		"queue.shutdown": 1,
		"worker.stopped": 1,
	}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("event %s: got %d, want %d (all: %v)", name, counts[name], n, counts)
		}
	}
	if got := ended[0].Status().Code; got != codes.Error {
		t.Errorf("expected error status, got %v", got)
	}
}

func TestSubmitEventsOptional(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("semq").Start(context.Background(), "jobs")
	runQueue(t, ctx, semqotel.New(false), taskqueue.Func(func() {}))
	span.End()

	for _, ev := range sr.Ended()[0].Events() {
		if ev.Name == "task.submitted" {
			t.Fatal("submit event recorded although disabled")
		}
	}
}

func TestNoSpanIsNoop(t *testing.T) {
	runQueue(t, context.Background(), semqotel.New(true), taskqueue.Func(func() {}))
	runQueue(t, context.Background(), semqotel.NewNop(), taskqueue.Func(func() {}))
}
