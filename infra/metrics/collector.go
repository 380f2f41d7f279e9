package metrics

import (
	"context"

	"github.com/kilianp07/microclaw/core/events"
	coremetrics "github.com/kilianp07/microclaw/core/metrics"
	"github.com/kilianp07/microclaw/core/monitoring"
	"github.com/kilianp07/microclaw/infra/logger"
	"github.com/kilianp07/microclaw/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector goroutine has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		defer monitoring.Recover()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Debugf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.Sink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.ReadingEvent:
		return sink.RecordReading(e)
	case events.ConnectionEvent:
		if r, ok := sink.(coremetrics.ConnectionRecorder); ok {
			return r.RecordConnection(e)
		}
	case events.PublishEvent:
		if r, ok := sink.(coremetrics.PublishRecorder); ok {
			return r.RecordPublish(e)
		}
	case events.CommandEvent:
		if r, ok := sink.(coremetrics.CommandRecorder); ok {
			return r.RecordCommand(e)
		}
	}
	return nil
}
