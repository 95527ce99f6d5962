package observe

import (
	"errors"
	"strings"
)

// Runtime errors.
var (
	// ErrNilObserver indicates a nil Observer was provided.
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrMissingOperationName indicates Operation.Name is empty.
	ErrMissingOperationName = errors.New("observe: operation name is required")
)

// RedactedFields lists log field keys whose values are never written.
var RedactedFields = []string{"password", "secret", "token", "api_key", "authorization", "credential"}

// isRedactedField matches keys case-insensitively, so "apiKey" and
// "Authorization" are covered too.
func isRedactedField(key string) bool {
	k := strings.ToLower(strings.ReplaceAll(key, "_", ""))
	for _, f := range RedactedFields {
		if k == strings.ReplaceAll(f, "_", "") {
			return true
		}
	}
	return false
}
