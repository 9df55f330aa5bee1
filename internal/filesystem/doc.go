/*
Package filesystem provides resilient filesystem operations with automatic retry
logic for NFS stale file handle errors, plus an atomic write helper.

Upload and thumbnail directories are commonly NFS mounts. ESTALE (errno 116) is
retried with exponential backoff; every other error is returned immediately.

# Usage

	cfg := filesystem.DefaultRetryConfig()

	removed, err := filesystem.RemoveIfExists("/uploads/thumbnails/7_raw.jpg", cfg)

	err = filesystem.WriteAtomic("/uploads/thumbnails/7_thumb_md.jpg", cfg, func(f *os.File) error {
	    return jpeg.Encode(f, img, &jpeg.Options{Quality: 85})
	})

WriteAtomic writes to a hidden temp sibling and renames it over the target,
so the final name only ever refers to a complete file.

# Metrics

Retry attempts and exhausted retries are reported through the Observer set
with SetObserver (see metrics.NewFilesystemObserver).
*/
package filesystem
