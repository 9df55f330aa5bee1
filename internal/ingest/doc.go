// Package ingest accepts uploaded videos and removes deleted ones.
//
// An upload is staged to temp_{uuid} under the upload directory while it
// streams in, then committed: renamed to {uuid}_{filename}, probed for its
// duration, recorded as a clip without a thumbnail and handed to the
// thumbnail pipeline. The response never waits for thumbnails.
//
// Deleting a clip removes the video, every thumbnail artifact and the
// record.
package ingest
