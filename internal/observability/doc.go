// Package observability provides structured logging, Prometheus metrics, and
// context propagation helpers for the literature pipeline service.
package observability
