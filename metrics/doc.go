// Package metrics exposes Prometheus instrumentation for uploads and sweeps.
//
// Search latency and errors are labelled by oversampling, rescore and limit
// so a live sweep can be watched cell by cell from /metrics.
package metrics
