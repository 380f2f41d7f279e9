// Package transducer provides the sensing elements behind sensor.Reader:
// a line-oriented serial device, the Linux IIO sysfs interface used by the
// kernel dht11 driver, and a simulator for development. Each registers
// itself under its type name.
package transducer
