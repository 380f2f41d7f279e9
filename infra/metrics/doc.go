// Package metrics implements the Prometheus and InfluxDB sinks and the event
// collector feeding them from the node event bus.
package metrics
