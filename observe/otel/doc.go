// Package otel provides an OpenTelemetry observer for task queues. It adds
// span events (submit, start, finish, shutdown, stop) to the span carried by
// the queue's context and records task failures on it.
package otel
