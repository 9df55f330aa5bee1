// Package main provides the entry point for the ClipHub backend.
//
// ClipHub accepts short video uploads, stores them on local disk and
// generates JPEG thumbnails in the background. Each clip gets three
// variants (320x180, 640x360 and 1280x720) extracted from a single frame;
// the medium one is recorded on the clip and served as a static file.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT or the environment
//  2. Configuration Loading: Reads .env and environment variables, prepares directories
//  3. Metrics: Registers Prometheus collectors and build info
//  4. libvips: Started when RESIZER=vips
//  5. Database Initialization: Opens the SQLite clip store and runs migrations
//  6. Thumbnail Pipeline: Orchestrator, memory monitor and worker queue
//  7. Upload Service, Metrics Collector and Artifact Indexer
//  8. HTTP Server Setup: Router, metrics and access log middleware
//
// # Background Services
//
//   - Thumbnail queue workers: one pipeline run per clip at a time
//   - Memory monitor: holds workers back while the heap is above the critical mark
//   - Metrics collector: refreshes library gauges every minute
//   - Artifact indexer: reports orphaned thumbnail files every ARTIFACT_SCAN_INTERVAL
//     and on SIGHUP
//
// # HTTP Server
//
// The main server (default port 8000) serves the clip API, health checks
// and the thumbnail directory. The metrics server (default port 9090)
// exposes /metrics and /health when METRICS_ENABLED is true.
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM:
//
//  1. Stop accepting HTTP requests
//  2. Drain the thumbnail queue (queued runs finish)
//  3. Stop the memory monitor, artifact indexer and metrics collector
//  4. Shut down the metrics server
//  5. Close the database
//  6. Release libvips
//
// All steps share a 30 second deadline.
//
// # Build Requirements
//
// CGO is required for SQLite and libvips. FFmpeg must be on PATH (or set
// FFMPEG_PATH) for frame extraction.
//
//	go build -o cliphub ./cmd/cliphub
package main
