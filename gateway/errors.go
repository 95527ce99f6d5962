package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonwraymond/infergate/auth"
	"github.com/jonwraymond/infergate/inference"
	"github.com/jonwraymond/infergate/report"
	"github.com/jonwraymond/infergate/resilience"
	"github.com/jonwraymond/infergate/users"
)

// InputKind classifies a rejected request.
type InputKind int

const (
	// MissingField means a required field or file part is absent.
	MissingField InputKind = iota
	// UnsupportedType means a payload is of a type the operation cannot use.
	UnsupportedType
	// SchemaMismatch means a payload is present but malformed.
	SchemaMismatch
)

// String returns the kind name.
func (k InputKind) String() string {
	switch k {
	case MissingField:
		return "missing_field"
	case UnsupportedType:
		return "unsupported_type"
	case SchemaMismatch:
		return "schema_mismatch"
	default:
		return "unknown"
	}
}

// InputError rejects a request before any provider is called.
type InputError struct {
	Kind   InputKind
	Field  string
	Detail string
}

func (e *InputError) Error() string {
	switch {
	case e.Kind == MissingField && e.Detail == "":
		return fmt.Sprintf("%s is required", e.Field)
	case e.Field == "":
		return e.Detail
	default:
		return fmt.Sprintf("%s: %s", e.Field, e.Detail)
	}
}

// Status returns the HTTP status for the error.
func (e *InputError) Status() int {
	if e.Kind == UnsupportedType {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

func missing(field string) error {
	return &InputError{Kind: MissingField, Field: field}
}

func unsupported(field, detail string) error {
	return &InputError{Kind: UnsupportedType, Field: field, Detail: detail}
}

func mismatch(field, detail string) error {
	return &InputError{Kind: SchemaMismatch, Field: field, Detail: detail}
}

// statusFor maps err to a response status and client-facing message.
// internal reports whether the error is unexpected and its detail must not
// leave the server.
func statusFor(err error) (status int, msg string, internal bool) {
	var inputErr *InputError
	var upErr *inference.UpstreamError
	switch {
	case errors.As(err, &inputErr):
		return inputErr.Status(), inputErr.Error(), false
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden", false
	case auth.IsAuthenticationError(err):
		return http.StatusUnauthorized, err.Error(), false
	case errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound, "user not found", false
	case errors.Is(err, users.ErrExists):
		return http.StatusConflict, "user already exists", false
	case errors.Is(err, users.ErrInvalid):
		return http.StatusBadRequest, err.Error(), false
	case errors.As(err, &upErr):
		switch upErr.Kind {
		case inference.KindUnavailable, inference.KindTransient:
			return http.StatusServiceUnavailable, upErr.Error(), false
		default:
			return http.StatusBadGateway, upErr.Error(), false
		}
	case errors.Is(err, resilience.ErrTimeout):
		return http.StatusBadGateway, "upstream timeout", false
	case errors.Is(err, errNotConfigured):
		return http.StatusServiceUnavailable, "operation not configured", false
	case errors.Is(err, report.ErrNoModel):
		return http.StatusServiceUnavailable, "generative model not configured", false
	default:
		return http.StatusInternalServerError, "internal server error", true
	}
}

// isClientGone reports whether the caller disconnected.
func isClientGone(r *http.Request, err error) bool {
	return errors.Is(err, context.Canceled) && r.Context().Err() != nil
}
