// Package indexer scans the thumbnail directory for orphaned artifacts.
//
// Artifact file names encode their clip id ({id}_raw.jpg and
// {id}_thumb_{label}.jpg), so a scan groups files by id and asks the clip
// store whether each id still has a record. Ids without one are orphans:
// files left when a clip was deleted while its thumbnail run was in
// flight, or by a crash between writing variants and cleanup.
//
// The indexer reports and never deletes. Reports are exported as the
// cliphub_artifact_files and cliphub_artifact_orphan_clips gauges and are
// available to clipctl, which can remove orphans on request.
//
// Scanning modes:
//   - Periodic: every ARTIFACT_SCAN_INTERVAL, starting at server startup
//   - Manual: Index, or TriggerIndex (the server calls it on SIGHUP)
//   - One-off: Scan, used by clipctl orphans
//
// Files whose names do not follow the naming convention, hidden files and
// subdirectories are listed as unrecognized or skipped, never treated as
// artifacts.
package indexer
