// Package middleware provides the HTTP middleware wrapped around the clip
// API router.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with the trusted
//     X-User-ID header reported as cs-username
//   - Prometheus request metrics labelled by route template
//   - Filtering for thumbnail file requests and health checks
package middleware
