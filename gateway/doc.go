// Package gateway is the HTTP surface of infergate.
//
// Every protected route passes through the same chain: request observation
// (request id, span, metrics, access log), panic recovery, bearer-token
// authentication, then the handler. Handlers derive a cache key from the
// request content and let cache.Memoizer decide between the cached answer and
// a provider call.
//
// Error responses are JSON objects {"error": "..."}; see statusFor for the
// mapping from error kinds to HTTP status codes.
package gateway
