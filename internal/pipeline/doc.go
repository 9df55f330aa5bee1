// Package pipeline generates thumbnails for uploaded clips.
//
// An Orchestrator run probes the video, extracts one frame, renders the sm,
// md and lg variants, removes the raw frame and records the md path on the
// clip with a single conditional update. A variant failure removes every
// artifact for the clip; a clip deleted mid-run is never recreated.
//
// A Queue bounds how many runs execute at once and rejects a second job for
// a clip that is already queued or running.
package pipeline
