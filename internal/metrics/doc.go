// Package metrics records discovery and connection metrics.
//
// Components depend on the Recorder interface. NoopRecorder is the default;
// PrometheusRecorder is installed when monitoring.metrics.enabled is set, and
// HTTPHandler exposes its registry.
package metrics
