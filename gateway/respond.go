package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/jonwraymond/infergate/auth"
	"github.com/jonwraymond/infergate/observe"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON writes a provider body that is already JSON.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func setCacheHeader(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set(cacheHeader, "HIT")
	} else {
		w.Header().Set(cacheHeader, "MISS")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if isClientGone(r, err) {
		return
	}
	status, msg, internal := statusFor(err)
	if internal {
		s.logger.Error(r.Context(), "unhandled error",
			observe.Field{Key: "principal", Value: auth.Principal(r.Context())},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// authError answers failed authentication.
func (s *Server) authError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, internal := statusFor(err)
	if internal {
		s.logger.Error(r.Context(), "authenticator failed", observe.Field{Key: "error", Value: err.Error()})
	} else {
		w.Header().Set("WWW-Authenticate", `Bearer realm="infergate"`)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// recoverer turns a handler panic into a logged 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error(r.Context(), "handler panic",
				observe.Field{Key: "panic", Value: fmt.Sprint(rec)},
				observe.Field{Key: "stack", Value: string(debug.Stack())},
			)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}
