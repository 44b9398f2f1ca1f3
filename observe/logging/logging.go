// Package logging provides a task queue observer that writes structured
// log records with log/slog.
package logging

import (
	"context"
	"log/slog"
	"time"
)

// Observer logs queue events. Task submissions and starts are logged at
// Debug, failures at Error, shutdown and worker exit at Info.
type Observer struct {
	log *slog.Logger
}

// New returns an Observer writing to logger, or to slog.Default() if logger
// is nil.
func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{log: logger}
}

func (o *Observer) TaskSubmitted(ctx context.Context, id uint64) {
	o.log.DebugContext(ctx, "task submitted", slog.Uint64("task", id))
}

func (o *Observer) TaskStarted(ctx context.Context, id uint64) {
	o.log.DebugContext(ctx, "task started", slog.Uint64("task", id))
}

func (o *Observer) TaskFinished(ctx context.Context, id uint64, dur time.Duration, err error, panicked bool) {
	if err == nil && !panicked {
		o.log.DebugContext(ctx, "task finished", slog.Uint64("task", id), slog.Duration("took", dur))
		return
	}
	o.log.ErrorContext(ctx, "task failed",
		slog.Uint64("task", id),
		slog.Duration("took", dur),
		slog.Bool("panicked", panicked),
		slog.Any("error", err),
	)
}

func (o *Observer) ShutdownInitiated(ctx context.Context, drain time.Duration) {
	o.log.InfoContext(ctx, "queue drained, no longer accepting tasks", slog.Duration("drain", drain))
}

func (o *Observer) WorkerStopped(ctx context.Context, executed uint64) {
	o.log.InfoContext(ctx, "worker stopped", slog.Uint64("executed", executed))
}
