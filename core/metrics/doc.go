// Package metrics defines the sink interfaces used to export node telemetry.
// Sinks such as the Prometheus and InfluxDB implementations in infra/metrics
// record sensor readings, connection changes and publish outcomes. Optional
// recorder interfaces let a sink opt into the event kinds it understands, and
// NewSink returns a MultiSink automatically when several sinks are configured.
package metrics
