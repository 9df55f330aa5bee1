/*
Package workers sizes the thumbnail pipeline worker pool.

Pipeline runs spawn one ffmpeg process each, so the pool must be bounded to
protect the host. Sizing uses runtime.GOMAXPROCS(0) rather than
runtime.NumCPU() because GOMAXPROCS honours container CPU limits (Go 1.19+):
a pod limited to 2 cores on a 64-core node gets 3 workers, not 96.

	// 1.5 workers per CPU, at most 8
	n := workers.ForMixed(8)

	// PIPELINE_WORKERS wins when set to a positive value
	n = workers.Resolve(cfg.PipelineWorkers, 8)

Count is always at least 1.
*/
package workers
