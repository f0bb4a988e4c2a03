// Package httpserver provides the HTTP server for BoardMesh.
//
// It serves the WebSocket endpoint that carries board envelopes, the
// board inspection and export API, client configuration, metrics and the
// static client files. Routes live in the handler subpackage; this package
// owns the listener and the middleware chain:
//
//   - RequestID: X-Request-ID propagation (uuid)
//   - Recover: panic to 500
//   - Metrics: request counters and latency
//   - Audit: access log
//   - RateLimit: per-IP token bucket (x/time/rate)
package httpserver
