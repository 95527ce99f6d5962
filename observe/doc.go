// Package observe provides observability primitives for gateway operations.
//
// It wraps OpenTelemetry tracing and metrics, offers a context-first
// structured Logger (JSON or zap backed) with automatic redaction of
// credential fields, and an HTTP middleware that assigns request ids and
// records one span, one metric sample and one log line per request.
package observe
