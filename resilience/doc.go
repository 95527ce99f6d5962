// Package resilience provides the retry and deadline primitives used around
// calls to inference providers.
//
// Retry is deliberately narrow: callers decide which errors are retryable
// through RetryIf, and only the streaming report path retries at all.
// Every other provider call is bounded by Do and fails fast.
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: 3,
//	    BaseDelay:   time.Second,
//	    Multiplier:  2.0,
//	    RetryIf:     isTransient,
//	})
//	err := retry.Execute(ctx, func(ctx context.Context) error {
//	    return streamOnce(ctx)
//	})
//
// Overload is never smoothed here: there is no circuit breaker, queue or
// rate limiter, so sustained provider failure surfaces to the caller.
package resilience
