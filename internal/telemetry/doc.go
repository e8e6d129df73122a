// Package telemetry records audio-graph measurements in InfluxDB.
//
// It wraps the InfluxDB v2 client with a non-blocking, batched write
// API: profiler load, xruns, per-driver timing and node volume changes
// are turned into points and flushed in the background. Writes are
// fire-and-forget; async failures surface through an error callback.
//
// The package is optional. When InfluxDB is disabled in configuration,
// Connect returns ErrDisabled and the daemon runs without telemetry.
package telemetry
