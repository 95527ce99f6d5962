package inference

import "time"

// Class groups provider endpoints that share a time budget.
type Class int

const (
	// ClassClassify is single-image classification.
	ClassClassify Class = iota
	// ClassGenerative is inpainting and other long generative calls.
	ClassGenerative
	// ClassForecast is forecast, history and report data gathering.
	ClassForecast
	// ClassStatus is provider health probing.
	ClassStatus
	// ClassMetrics is model evaluation metrics.
	ClassMetrics
	// ClassRender is markdown document rendering.
	ClassRender
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassClassify:
		return "classify"
	case ClassGenerative:
		return "generative"
	case ClassForecast:
		return "forecast"
	case ClassStatus:
		return "status"
	case ClassMetrics:
		return "metrics"
	case ClassRender:
		return "render"
	default:
		return "unknown"
	}
}

// Budgets maps a Class to its per-call deadline.
type Budgets map[Class]time.Duration

// DefaultBudgets returns the stock per-class deadlines.
func DefaultBudgets() Budgets {
	return Budgets{
		ClassClassify:   30 * time.Second,
		ClassGenerative: 120 * time.Second,
		ClassForecast:   15 * time.Second,
		ClassStatus:     2 * time.Second,
		ClassMetrics:    10 * time.Second,
		ClassRender:     60 * time.Second,
	}
}

// For returns the budget for c, falling back to the default for that class.
func (b Budgets) For(c Class) time.Duration {
	if d, ok := b[c]; ok && d > 0 {
		return d
	}
	return DefaultBudgets()[c]
}

// ParseClass returns the Class named s.
func ParseClass(s string) (Class, bool) {
	for c := ClassClassify; c <= ClassRender; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}
