// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read from environment variables via [LoadConfig] (or
// [FromEnv] for tools that must not print the banner). A .env file in the
// working directory is loaded first; values already present in the
// environment win.
//
//   - PORT: HTTP server port (default: 8000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - UPLOAD_DIR: Directory for uploaded clips (default: uploads)
//   - THUMBNAIL_DIR: Directory for thumbnail artifacts (default: uploads/thumbnails)
//   - THUMBNAIL_URL_PREFIX: Prefix stored in thumbnail_path (default: uploads/thumbnails)
//   - DATABASE_DIR: Directory holding cliphub.db (default: data)
//   - MAX_UPLOAD_SIZE: Upload limit in bytes (default: 1073741824)
//   - ACCEPTED_EXTENSIONS: Comma separated list (default: .mp4)
//   - PIPELINE_WORKERS: Thumbnail workers, 0 for CPU based sizing (default: 0)
//   - PIPELINE_QUEUE_SIZE: Pending thumbnail job buffer (default: 64)
//   - FFMPEG_PATH / FFPROBE_PATH: Binaries used by the pipeline
//   - RESIZER: imaging or vips (default: imaging)
//   - ARTIFACT_SCAN_INTERVAL: Orphaned thumbnail scan interval, 0 disables (default: 6h)
//   - DISCORD_WEBHOOK_URL: Enables upload notifications when set
//   - FRONTEND_URL / BACKEND_URL: Base URLs used in notification links
//   - NOTIFY_ON_UPLOAD: Notify after the first thumbnail run (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log thumbnail file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT / MEMORY_RATIO / GOMEMLIMIT: see package memory
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
