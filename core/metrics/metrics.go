package metrics

import "github.com/kilianp07/microclaw/core/events"

// Sink records sensor readings. Every sink supports readings; the other
// event kinds are optional.
type Sink interface {
	RecordReading(ev events.ReadingEvent) error
}

// ConnectionRecorder records link state changes and failed attempts.
type ConnectionRecorder interface {
	RecordConnection(ev events.ConnectionEvent) error
}

// PublishRecorder records publish outcomes.
type PublishRecorder interface {
	RecordPublish(ev events.PublishEvent) error
}

// CommandRecorder records received commands.
type CommandRecorder interface {
	RecordCommand(ev events.CommandEvent) error
}

// Closer is implemented by sinks holding resources such as HTTP clients.
type Closer interface {
	Close()
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordReading(events.ReadingEvent) error       { return nil }
func (NopSink) RecordConnection(events.ConnectionEvent) error { return nil }
func (NopSink) RecordPublish(events.PublishEvent) error       { return nil }
func (NopSink) RecordCommand(events.CommandEvent) error       { return nil }
