// Package handlers provides the HTTP handlers for the clip API.
//
// It includes handlers for:
//   - Streaming clip uploads and clip lookup
//   - Clip deletion by the owner or an admin
//   - Thumbnail reprocessing requests
//   - Health checks and build information
//
// Caller identity is taken from the X-User-ID and X-User-Role headers set
// by the authenticating proxy in front of the service.
package handlers
