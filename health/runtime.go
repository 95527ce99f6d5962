package health

import (
	"context"
	"fmt"
	"runtime"
)

// RuntimeCheckerConfig configures the runtime health checker.
type RuntimeCheckerConfig struct {
	// MaxHeapBytes is the heap size that triggers degraded status. Uploaded
	// images and open report streams are held in memory, so a runaway heap
	// is the first sign of overload. Zero disables the heap check.
	MaxHeapBytes uint64

	// MaxGoroutines is the goroutine count that triggers degraded status.
	// Each open report stream holds two goroutines. Zero disables the check.
	MaxGoroutines int
}

// RuntimeChecker reports heap and goroutine usage of the gateway process.
type RuntimeChecker struct {
	config RuntimeCheckerConfig
}

// NewRuntimeChecker creates a new runtime health checker.
func NewRuntimeChecker(config RuntimeCheckerConfig) *RuntimeChecker {
	return &RuntimeChecker{config: config}
}

// Name returns "runtime".
func (m *RuntimeChecker) Name() string {
	return "runtime"
}

// Check samples runtime statistics.
func (m *RuntimeChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	goroutines := runtime.NumGoroutine()

	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"heap_in_use":      stats.HeapInuse,
		"heap_objects":     stats.HeapObjects,
		"num_gc":           stats.NumGC,
		"goroutines":       goroutines,
	}

	if m.config.MaxHeapBytes > 0 && stats.HeapAlloc >= m.config.MaxHeapBytes {
		return Degraded(
			fmt.Sprintf("heap %d bytes exceeds %d", stats.HeapAlloc, m.config.MaxHeapBytes),
			nil,
		).WithDetails(details)
	}
	if m.config.MaxGoroutines > 0 && goroutines >= m.config.MaxGoroutines {
		return Degraded(
			fmt.Sprintf("%d goroutines exceeds %d", goroutines, m.config.MaxGoroutines),
			nil,
		).WithDetails(details)
	}

	return Healthy("runtime within limits").WithDetails(details)
}
