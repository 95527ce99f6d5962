// Package inference forwards requests to the machine-learning providers that
// sit behind the gateway: image classification and inpainting, time-series
// forecasting, and document rendering.
//
// A Proxy owns one HTTP client per provider and applies a per-call time
// budget chosen by the endpoint Class. It never caches and never retries;
// callers layer memoization (cache.Memoizer) and retry (resilience.Retry)
// on top where the operation allows it.
//
// Failures are reported as *UpstreamError and match one of the Err*
// sentinels with errors.Is:
//
//	body, err := proxy.Forward(ctx, inference.Request{Method: http.MethodGet, Path: "/history", Class: inference.ClassForecast})
//	if errors.Is(err, inference.ErrUpstreamUnavailable) {
//		// provider down
//	}
package inference
