// Package metric provides Prometheus metrics for BoardMesh.
//
//   - prometheus.go: the metrics registry and the /metrics handler
//   - collector.go: a collector reporting per-board gauges at scrape time
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
