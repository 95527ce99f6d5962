package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// ForecastClient calls the time-series forecasting provider.
type ForecastClient struct {
	proxy *Proxy
}

// NewForecastClient wraps p.
func NewForecastClient(p *Proxy) *ForecastClient {
	return &ForecastClient{proxy: p}
}

// Forecast returns the provider's forecast for the next steps periods.
func (c *ForecastClient) Forecast(ctx context.Context, steps int) ([]byte, error) {
	return c.proxy.Forward(ctx, Request{
		Method: http.MethodGet,
		Path:   "/forecast",
		Query:  url.Values{"steps": {strconv.Itoa(steps)}},
		Class:  ClassForecast,
	})
}

// History returns the observed series.
func (c *ForecastClient) History(ctx context.Context) ([]byte, error) {
	return c.proxy.Forward(ctx, Request{Method: http.MethodGet, Path: "/history", Class: ClassForecast})
}

// Metrics returns the model evaluation metrics.
func (c *ForecastClient) Metrics(ctx context.Context) ([]byte, error) {
	return c.proxy.Forward(ctx, Request{Method: http.MethodGet, Path: "/metrics", Class: ClassMetrics})
}

// Ready reports whether the provider answers /health with status "ready".
func (c *ForecastClient) Ready(ctx context.Context) bool {
	body, err := c.proxy.Forward(ctx, Request{Method: http.MethodGet, Path: "/health", Class: ClassStatus})
	if err != nil {
		return false
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return false
	}
	return health.Status == "ready"
}

// Ping returns an error unless the provider is ready.
func (c *ForecastClient) Ping(ctx context.Context) error {
	if !c.Ready(ctx) {
		return &UpstreamError{Provider: c.proxy.Name(), Kind: KindUnavailable}
	}
	return nil
}
