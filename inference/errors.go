package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jonwraymond/infergate/resilience"
)

var (
	// ErrUpstreamUnavailable indicates the provider could not be reached.
	ErrUpstreamUnavailable = errors.New("inference: upstream unavailable")

	// ErrUpstreamTimeout indicates the provider exceeded its time budget.
	ErrUpstreamTimeout = errors.New("inference: upstream timeout")

	// ErrUpstreamTransient indicates the provider asked the caller to back off
	// (429 or 503).
	ErrUpstreamTransient = errors.New("inference: upstream transient failure")

	// ErrUpstreamPermanent indicates any other non-2xx provider answer.
	ErrUpstreamPermanent = errors.New("inference: upstream error")

	// ErrInvalidRequest indicates a malformed Request.
	ErrInvalidRequest = errors.New("inference: invalid request")
)

// Kind classifies an upstream failure.
type Kind int

const (
	KindUnavailable Kind = iota
	KindTimeout
	KindTransient
	KindPermanent
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// UpstreamError describes a failed provider call.
type UpstreamError struct {
	Provider string
	Kind     Kind
	// Status is the provider HTTP status, zero when no response was received.
	Status int
	// Body is the provider response body, if any.
	Body []byte
	Err  error
}

// Error implements error.
func (e *UpstreamError) Error() string {
	switch {
	case e.Status != 0 && len(e.Body) > 0:
		return fmt.Sprintf("inference: %s %s (status %d): %s", e.Provider, e.Kind, e.Status, truncate(e.Body, 256))
	case e.Status != 0:
		return fmt.Sprintf("inference: %s %s (status %d)", e.Provider, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("inference: %s %s: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("inference: %s %s", e.Provider, e.Kind)
	}
}

// Unwrap returns the underlying transport error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's Kind.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstreamUnavailable:
		return e.Kind == KindUnavailable
	case ErrUpstreamTimeout:
		return e.Kind == KindTimeout
	case ErrUpstreamTransient:
		return e.Kind == KindTransient
	case ErrUpstreamPermanent:
		return e.Kind == KindPermanent
	}
	return false
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamTransient)
}

func statusError(provider string, status int, body []byte) *UpstreamError {
	kind := KindPermanent
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		kind = KindTransient
	}
	return &UpstreamError{Provider: provider, Kind: kind, Status: status, Body: body}
}

func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, resilience.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Provider: provider, Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UpstreamError{Provider: provider, Kind: KindTimeout, Err: err}
	}
	return &UpstreamError{Provider: provider, Kind: KindUnavailable, Err: err}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
