package metrics

import (
	"errors"

	"github.com/kilianp07/microclaw/core/events"
)

// MultiSink fans events out to several sinks. A failing sink does not stop
// the others; the errors are joined.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordReading(ev events.ReadingEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordReading(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordConnection forwards to sinks implementing ConnectionRecorder.
func (m *MultiSink) RecordConnection(ev events.ConnectionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ConnectionRecorder); ok {
			if err := rec.RecordConnection(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordPublish forwards to sinks implementing PublishRecorder.
func (m *MultiSink) RecordPublish(ev events.PublishEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(PublishRecorder); ok {
			if err := rec.RecordPublish(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordCommand forwards to sinks implementing CommandRecorder.
func (m *MultiSink) RecordCommand(ev events.CommandEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(CommandRecorder); ok {
			if err := rec.RecordCommand(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every child sink implementing Closer.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			c.Close()
		}
	}
}
