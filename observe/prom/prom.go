package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "semq"

// Metrics is a taskqueue.Observer that records queue activity as Prometheus
// metrics labelled with the queue name.
type Metrics struct {
	// tasks
	submitted prometheus.Counter
	finished  *prometheus.CounterVec
	depth     prometheus.Gauge
	running   prometheus.Gauge
	taskDur   prometheus.Histogram

	// lifecycle
	drain   prometheus.Histogram
	stopped prometheus.Counter
}

// New registers queue metrics with reg (the default registerer if nil) and
// returns the observer. It panics if the metrics for queue are already
// registered with reg.
func New(reg prometheus.Registerer, queue string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"queue": queue}
	f := promauto.With(reg)
	return &Metrics{
		submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "taskqueue",
			Name:        "tasks_submitted_total",
			Help:        "Tasks accepted by Submit.",
			ConstLabels: labels,
		}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "taskqueue",
			Name:        "tasks_finished_total",
			Help:        "Tasks run by the worker, by outcome (ok, error, panic).",
			ConstLabels: labels,
		}, []string{"outcome"}),
		depth: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "taskqueue",
			Name:        "depth",
			Help:        "Tasks waiting to run.",
			ConstLabels: labels,
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "taskqueue",
			Name:        "running",
			Help:        "1 while the worker is running a task.",
			ConstLabels: labels,
		}),
		taskDur: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "taskqueue",
			Name:        "task_duration_seconds",
			Help:        "Task run time.",
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
			ConstLabels: labels,
		}),
		drain: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "taskqueue",
			Name:        "shutdown_drain_seconds",
			Help:        "Time Shutdown spent waiting for the queue to drain.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
		stopped: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "taskqueue",
			Name:        "workers_stopped_total",
			Help:        "Workers that reached the drained-and-stopped state.",
			ConstLabels: labels,
		}),
	}
}

// TaskSubmitted increments submitted and depth.
func (m *Metrics) TaskSubmitted(_ context.Context, _ uint64) {
	m.submitted.Inc()
	m.depth.Inc()
}

// TaskStarted moves one task from waiting to running.
func (m *Metrics) TaskStarted(_ context.Context, _ uint64) {
	m.depth.Dec()
	m.running.Set(1)
}

// TaskFinished records the outcome and duration.
func (m *Metrics) TaskFinished(_ context.Context, _ uint64, dur time.Duration, err error, panicked bool) {
	m.running.Set(0)
	switch {
	case panicked:
		m.finished.WithLabelValues("panic").Inc()
	case err != nil:
		m.finished.WithLabelValues("error").Inc()
	default:
		m.finished.WithLabelValues("ok").Inc()
	}
	m.taskDur.Observe(dur.Seconds())
}

func (m *Metrics) ShutdownInitiated(_ context.Context, drain time.Duration) {
	m.drain.Observe(drain.Seconds())
}

func (m *Metrics) WorkerStopped(_ context.Context, _ uint64) {
	m.stopped.Inc()
}

// PermitCounter is implemented by *semaphore.Semaphore.
type PermitCounter interface {
	Available() int
}

// RegisterSemaphore exposes the permits currently available in sem as a
// gauge labelled with name.
func RegisterSemaphore(reg prometheus.Registerer, name string, sem PermitCounter) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "semaphore",
		Name:        "available_permits",
		Help:        "Permits that Wait could take without blocking.",
		ConstLabels: prometheus.Labels{"semaphore": name},
	}, func() float64 { return float64(sem.Available()) }))
}
