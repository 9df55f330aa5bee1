package workers

import (
	"runtime"
)

// Count returns the number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count to prevent resource exhaustion.
// Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
// Thumbnail pipeline runs are mixed: they wait on an ffmpeg subprocess and
// then resize in-process.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Resolve returns override when it is positive (capped by limit), otherwise
// the ForMixed default. override comes from PIPELINE_WORKERS.
func Resolve(override, limit int) int {
	if override > 0 {
		if limit > 0 && override > limit {
			return limit
		}
		return override
	}
	return ForMixed(limit)
}
