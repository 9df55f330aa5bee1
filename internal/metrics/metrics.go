package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cliphub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cliphub_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Upload ingestion metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_uploads_total",
			Help: "Total number of clip uploads by outcome",
		},
		[]string{"status"}, // "success", "invalid_extension", "too_large", "error"
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cliphub_upload_bytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 8), // 1MiB .. 16GiB
		},
	)

	UploadProbeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cliphub_upload_probe_failures_total",
			Help: "Uploads whose duration could not be probed",
		},
	)
)

// Thumbnail pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_pipeline_runs_total",
			Help: "Total number of thumbnail pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelinePhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cliphub_pipeline_phase_duration_seconds",
			Help:    "Duration of each thumbnail pipeline phase in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"phase"}, // "probe", "extract", "variants", "finalize", "notify"
	)

	PipelineQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_pipeline_queue_depth",
			Help: "Number of pipeline jobs waiting for a worker",
		},
	)

	PipelineInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_pipeline_in_flight",
			Help: "Number of pipeline jobs currently running",
		},
	)

	PipelineWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_pipeline_workers",
			Help: "Configured number of pipeline workers",
		},
	)

	PipelineRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_pipeline_rejected_total",
			Help: "Pipeline submissions rejected before running",
		},
		[]string{"reason"}, // "duplicate", "queue_full", "stopped"
	)

	ArtifactCleanupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_artifact_cleanups_total",
			Help: "Thumbnail artifact cleanups by trigger",
		},
		[]string{"trigger"}, // "variant_failure", "clip_deleted", "manual", "orphan_sweep"
	)

	ArtifactFilesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cliphub_artifact_files_removed_total",
			Help: "Thumbnail artifact files removed from disk",
		},
	)

	ArtifactIndexRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_artifact_index_runs_total",
			Help: "Thumbnail directory scans by result",
		},
		[]string{"status"}, // "success", "error"
	)

	ArtifactIndexDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_artifact_index_last_duration_seconds",
			Help: "Duration of the last thumbnail directory scan",
		},
	)

	ArtifactIndexLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_artifact_index_last_run_timestamp",
			Help: "Unix time of the last completed thumbnail directory scan",
		},
	)

	ArtifactFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_artifact_files",
			Help: "Artifact files in the thumbnail directory at the last scan",
		},
	)

	ArtifactOrphanClips = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_artifact_orphan_clips",
			Help: "Clip ids with artifact files but no clip record at the last scan",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_notifications_total",
			Help: "Outbound clip notifications by status",
		},
		[]string{"status"}, // "sent", "failed", "skipped"
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale handle error",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliphub_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)
)

// Memory backpressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_memory_paused",
			Help: "1 while thumbnail workers are paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cliphub_memory_gc_pauses_total",
			Help: "Times the pipeline paused and forced a GC at the critical water mark",
		},
	)
)

// Library gauges, refreshed by the Collector
var (
	ClipsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_clips_total",
			Help: "Number of clip records",
		},
	)

	ClipsWithoutThumbnail = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cliphub_clips_without_thumbnail",
			Help: "Number of clip records with no thumbnail reference",
		},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cliphub_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
