// Package memory configures the Go memory limit from the container limit
// and provides backpressure for the thumbnail pipeline.
//
// [ConfigureFromEnv] derives GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
// when GOMEMLIMIT itself is not set.
//
// A [Monitor] samples heap usage against that limit. Once usage reaches the
// critical water mark, pipeline workers block in [Monitor.Wait] before
// picking up the next job and a GC is forced; they resume when usage drops
// under the high water mark. Jobs already running are never interrupted.
package memory
