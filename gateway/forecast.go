package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jonwraymond/infergate/cache"
)

// Forecast horizon bounds.
const (
	defaultSteps = 12
	maxSteps     = 120
)

func parseSteps(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("steps")
	if raw == "" {
		return defaultSteps, nil
	}
	steps, err := strconv.Atoi(raw)
	if err != nil {
		return 0, mismatch("steps", "must be an integer")
	}
	if steps < 1 || steps > maxSteps {
		return 0, mismatch("steps", "must be between 1 and "+strconv.Itoa(maxSteps))
	}
	return steps, nil
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Forecast == nil {
		return errNotConfigured
	}
	steps, err := parseSteps(r)
	if err != nil {
		return err
	}

	key := cache.PathKey(nsView, r.URL.Path, strconv.Itoa(steps))
	body, hit, err := s.memo.Do(r.Context(), key, forecastTTL, func(ctx context.Context) ([]byte, error) {
		return s.deps.Forecast.Forecast(ctx, steps)
	})
	if err != nil {
		return err
	}
	setCacheHeader(w, hit)
	writeRawJSON(w, http.StatusOK, body)
	return nil
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Forecast == nil {
		return errNotConfigured
	}
	body, hit, err := s.memo.Do(r.Context(), cache.PathKey(nsView, r.URL.Path), historyTTL, s.deps.Forecast.History)
	if err != nil {
		return err
	}
	setCacheHeader(w, hit)
	writeRawJSON(w, http.StatusOK, body)
	return nil
}

func (s *Server) modelMetrics(w http.ResponseWriter, r *http.Request) error {
	if s.deps.Forecast == nil {
		return errNotConfigured
	}
	body, err := s.deps.Forecast.Metrics(r.Context())
	if err != nil {
		return err
	}
	writeRawJSON(w, http.StatusOK, body)
	return nil
}

// forecastHealth always answers 200; model_api reflects provider readiness.
func (s *Server) forecastHealth(w http.ResponseWriter, r *http.Request) error {
	state := "inactive"
	if s.deps.Forecast != nil && s.deps.Forecast.Ready(r.Context()) {
		state = "active"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive", "model_api": state})
	return nil
}
