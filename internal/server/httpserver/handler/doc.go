// Package handler provides the HTTP routes of BoardMesh.
//
//   - socket.go: the /ws endpoint and its participant
//   - board.go: board listing, stats, download and PDF export
//   - config.go: sanitized server config and client config
//   - health.go: liveness and readiness
//
// JSON API responses use the Response envelope. Errors carry a domain
// error code mapped to an HTTP status.
package handler
