package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, s := range []string{"success", "invalid_extension", "too_large", "error"} {
		UploadsTotal.WithLabelValues(s)
	}

	for _, o := range []string{"success", "extract_failed", "variant_failed", "record_missing", "store_error"} {
		PipelineRunsTotal.WithLabelValues(o)
	}

	for _, p := range []string{"probe", "extract", "variants", "finalize", "notify"} {
		PipelinePhaseDuration.WithLabelValues(p)
	}

	for _, r := range []string{"duplicate", "queue_full", "stopped"} {
		PipelineRejectedTotal.WithLabelValues(r)
	}

	for _, t := range []string{"variant_failure", "clip_deleted", "manual", "orphan_sweep"} {
		ArtifactCleanupsTotal.WithLabelValues(t)
	}

	for _, s := range []string{"success", "error"} {
		ArtifactIndexRunsTotal.WithLabelValues(s)
	}

	for _, s := range []string{"sent", "failed", "skipped"} {
		NotificationsTotal.WithLabelValues(s)
	}

	MemoryPaused.Set(0)

	for _, op := range []string{"stat", "remove", "rename"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}

	for _, op := range []string{"create_clip", "get_clip", "set_thumbnail_path", "get_clip_owner",
		"clear_thumbnail_path", "delete_clip", "list_without_thumbnail", "create_user", "get_user", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
