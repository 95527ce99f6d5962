package observe

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Middleware wraps HTTP handlers with observability (request id, tracing,
// metrics, logging).
//
// Contract:
//   - Concurrency: handlers returned by Handler are safe for concurrent use.
//   - Request ids: an inbound X-Request-ID is kept, otherwise a new one is
//     assigned; either way it is echoed on the response and placed in the
//     request context.
//   - Streaming: the wrapped ResponseWriter keeps http.Flusher working.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability
// components. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Metrics returns the metrics recorder, for instrumentation outside the
// request path (e.g. cache lookups).
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the base logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Handler instruments next as operation op.
func (m *Middleware) Handler(op Operation, next http.Handler) http.Handler {
	opLogger := m.logger.WithOperation(op)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = NewRequestID()
		}
		ctx := WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)

		ctx, span := m.tracer.StartSpan(ctx, op)
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(ctx))

		duration := time.Since(start)
		status := rec.Status()

		span.SetAttributes(attribute.Int("http.response.status_code", status))
		var spanErr error
		if status >= 500 {
			spanErr = fmt.Errorf("http status %d", status)
		}
		m.tracer.EndSpan(span, spanErr)
		m.metrics.RecordRequest(ctx, op, status, duration)

		fields := []Field{
			{Key: "method", Value: r.Method},
			{Key: "path", Value: r.URL.Path},
			{Key: "status", Value: status},
			{Key: "bytes", Value: rec.bytes},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		switch {
		case status >= 500:
			opLogger.Error(ctx, "request failed", fields...)
		case status >= 400:
			opLogger.Warn(ctx, "request rejected", fields...)
		default:
			opLogger.Info(ctx, "request completed", fields...)
		}
	})
}

// statusRecorder captures the response status and size.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing.
func (r *statusRecorder) Flush() {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Status returns the recorded status, 200 if the handler wrote nothing.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
