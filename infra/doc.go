// Package infra contains the technical adapters of the node: the MQTT
// transport, transducer drivers, metrics sinks, logging and error
// reporting. These packages implement interfaces defined in core.
package infra
