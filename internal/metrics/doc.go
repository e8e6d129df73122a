// Package metrics exposes Prometheus metrics for the mirrored audio
// graph: node counts by role, links, profiler CPU load and xruns, and
// notification-cycle counters. A Collector keeps the gauges current
// from change notifications; Serve exposes them over promhttp.
package metrics
