package events

import "time"

// ReadingEvent is published after every acquisition cycle of the sensor reader.
type ReadingEvent struct {
	TemperatureC float64
	HumidityPct  float64
	Valid        bool
	Error        string
	// Kind is "ok", "transducer" or "range" and names the last failure class.
	Kind     string
	Attempts int
	Time     time.Time
}

// ConnectionEvent is published on every state change of the link manager and
// on every failed connection attempt.
type ConnectionEvent struct {
	State   string
	Attempt int
	// Code is the broker reason code of a refused attempt, -1 otherwise.
	Code int
	Err  error
	Time time.Time
}

// PublishEvent reports the outcome of a publish call.
type PublishEvent struct {
	Topic    string
	Retained bool
	OK       bool
	Time     time.Time
}

// CommandEvent is published when a command payload is received.
type CommandEvent struct {
	Topic   string
	Command string
	Known   bool
	Time    time.Time
}
