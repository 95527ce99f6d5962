package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/infergate/resilience"
)

// DefaultTimeout bounds a whole round of checks.
const DefaultTimeout = 5 * time.Second

// Aggregator runs the registered checkers and folds their results into one
// status. Checks run concurrently; each gets the remaining round budget.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout bounds each round of checks. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		timeout:  DefaultTimeout,
		checkers: make(map[string]Checker),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds checker under name, replacing any checker already there.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// CheckerNames returns checker names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs the named checker alone.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}
	return a.run(ctx, checker), nil
}

// CheckAll runs every checker concurrently and returns results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := make(map[string]Checker, len(a.checkers))
	for name, c := range a.checkers {
		checkers[name] = c
	}
	a.mu.RUnlock()

	results := make(map[string]Result, len(checkers))
	var mu sync.Mutex
	var g errgroup.Group
	for name, c := range checkers {
		g.Go(func() error {
			r := a.run(ctx, c)
			mu.Lock()
			results[name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Snapshot runs all checks and returns the overall status with the results.
func (a *Aggregator) Snapshot(ctx context.Context) (Status, map[string]Result) {
	results := a.CheckAll(ctx)
	return Worst(results), results
}

// Worst returns the most severe status in results, Healthy when empty.
func Worst(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

// run executes one check under the round budget. A check that overruns is
// reported unhealthy without waiting for it.
func (a *Aggregator) run(ctx context.Context, checker Checker) Result {
	start := time.Now()
	r, err := resilience.Do(ctx, a.timeout, func(ctx context.Context) (Result, error) {
		return checker.Check(ctx), nil
	})
	switch {
	case errors.Is(err, resilience.ErrTimeout):
		r = Unhealthy("check timed out", ErrCheckTimeout)
	case err != nil:
		r = Unhealthy("check abandoned", err)
	}
	r.Duration = time.Since(start)
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}
