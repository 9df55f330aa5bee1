package metrics

import "cliphub/internal/filesystem"

// filesystemObserver implements filesystem.Observer using the Prometheus
// counters declared in this package.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records retry metrics.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveRetryAttempt(op string) {
	FilesystemRetryAttempts.WithLabelValues(op).Inc()
}

func (o *filesystemObserver) ObserveRetryFailure(op string) {
	FilesystemRetryFailures.WithLabelValues(op).Inc()
}
