// Package observability provides structured logging, Prometheus metrics,
// health checks, OpenTelemetry wiring, and graceful shutdown for the
// bookstore service.
package observability
