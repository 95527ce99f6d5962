package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jonwraymond/infergate/report"
)

// reportParams reads generation overrides from the query string.
func reportParams(r *http.Request) (report.Options, error) {
	q := r.URL.Query()
	opts := report.Options{
		Refresh: strings.EqualFold(q.Get("refresh"), "true"),
		Params:  report.DefaultParams(),
	}
	if v := strings.TrimSpace(q.Get("system_prompt")); v != "" {
		opts.Params.SystemPrompt = v
	}
	floatParam := func(name string, dst *float64) error {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return mismatch(name, "must be a number")
		}
		*dst = v
		return nil
	}
	if err := floatParam("temperature", &opts.Params.Temperature); err != nil {
		return opts, err
	}
	if err := floatParam("top_p", &opts.Params.TopP); err != nil {
		return opts, err
	}
	if raw := q.Get("max_tokens"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return opts, mismatch("max_tokens", "must be an integer")
		}
		opts.Params.MaxTokens = v
	}
	if err := opts.Params.Validate(); err != nil {
		return opts, mismatch("", err.Error())
	}
	return opts, nil
}

func (s *Server) reportDefaults(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, report.DefaultParams())
	return nil
}

func (s *Server) reportStream(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Reports == nil {
		return errNotConfigured
	}
	opts, err := reportParams(r)
	if err != nil {
		return err
	}
	sse, err := newSSEWriter(w)
	if err != nil {
		return err
	}

	if !opts.Refresh {
		if doc, ok := s.deps.Reports.Cached(r.Context()); ok {
			setCacheHeader(w, true)
			if sse.Chunk(doc) == nil {
				_ = sse.event("done", "")
			}
			return nil
		}
	}

	setCacheHeader(w, false)
	opts.Refresh = true
	session := s.deps.Reports.Run(r.Context(), opts, sse)

	switch {
	case session.State == report.StateComplete:
		_ = sse.event("done", "")
	case session.Reason == report.ReasonCancelled:
	case session.Reason == report.ReasonGathering:
		_ = sse.event("error", session.Notice())
	default:
		_ = sse.event("busy", session.Notice())
	}
	return nil
}
