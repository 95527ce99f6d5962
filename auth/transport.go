package auth

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler writes the response for a request that failed authentication.
// err is an authentication sentinel (ErrMissingCredentials, ErrTokenMalformed,
// ErrTokenExpired) or an internal error from the authenticator.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// RequireAuth is HTTP middleware that authenticates every request before
// delegating to next. Unauthenticated requests never reach next; the
// resolved identity is attached to the request context.
//
// Usage:
//
//	mux.Handle("/api", auth.RequireAuth(authenticator, nil)(apiHandler))
func RequireAuth(authenticator Authenticator, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = DefaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticator.Authenticate(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

// DefaultErrorHandler answers 401 for authentication failures and 500 for
// anything else, with a JSON body {"error": "..."}.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusUnauthorized
	msg := "unauthorized"
	switch {
	case IsAuthenticationError(err):
		msg = err.Error()
	default:
		status = http.StatusInternalServerError
		msg = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="infergate"`)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
