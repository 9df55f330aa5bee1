// Package metrics provides Prometheus instrumentation for cliphub.
//
// All metrics are prefixed with "cliphub_". They are grouped as:
//
//   - HTTP: request counts, durations and in-flight requests.
//   - Database: query counts and durations per operation, open connections.
//   - Uploads: accepted/rejected uploads, accepted sizes, probe failures.
//   - Pipeline: runs by outcome, per-phase durations, queue depth, in-flight
//     jobs, rejected submissions, artifact cleanups and notifications.
//   - Library: clip counts refreshed periodically by Collector.
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics
