// Package prometheus renders authkit metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts an [authkit.Engine] and exposes an
// [net/http.Handler] that renders all counters and histograms. Counter
// names are prefixed authkit_*_total; the single histogram is
// authkit_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
