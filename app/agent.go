package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kilianp07/microclaw/core/events"
	"github.com/kilianp07/microclaw/core/link"
	"github.com/kilianp07/microclaw/core/logger"
	"github.com/kilianp07/microclaw/core/sensor"
	"github.com/kilianp07/microclaw/internal/eventbus"
)

// ErrRestartRequested is returned by Run after a "restart" command.
var ErrRestartRequested = errors.New("restart requested")

// Commands understood on the command topic.
const (
	CommandStatus  = "status"
	CommandRestart = "restart"
)

// Channel names used in per-channel topics.
const (
	ChannelTemperature  = "temperature"
	ChannelHumidity     = "humidity"
	ChannelTemperatureF = "temperature_f"
)

// AgentConfig sets the loop cadence.
type AgentConfig struct {
	PublishInterval time.Duration
	LoopInterval    time.Duration
	// Fahrenheit adds the temperature_f channel.
	Fahrenheit bool
}

// Agent is the driving loop. It owns the reader and the link manager and is
// the only goroutine touching them.
type Agent struct {
	reader *sensor.Reader
	link   *link.Manager
	topics link.Topics
	cfg    AgentConfig
	log    logger.Logger
	bus    eventbus.EventBus
	clock  func() time.Time

	sampled    bool
	lastSample time.Duration
	restart    bool
}

// AgentOption customizes an Agent.
type AgentOption func(*Agent)

func WithAgentLogger(l logger.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

// WithAgentEventBus publishes command events.
func WithAgentEventBus(b eventbus.EventBus) AgentOption {
	return func(a *Agent) { a.bus = b }
}

// NewAgent wires the command handler on mgr.
func NewAgent(reader *sensor.Reader, mgr *link.Manager, cfg AgentConfig, opts ...AgentOption) *Agent {
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 30 * time.Second
	}
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = 100 * time.Millisecond
	}
	a := &Agent{
		reader: reader,
		link:   mgr,
		topics: mgr.Topics(),
		cfg:    cfg,
		log:    logger.Nop{},
		clock:  time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	mgr.OnMessage(a.handleMessage)
	return a
}

// Step runs one loop iteration at the given elapsed time: keep the link up,
// service it, and sample when the publish interval has elapsed. The first
// sample is taken on the first step.
func (a *Agent) Step(now time.Duration) {
	a.link.EnsureConnected(now)
	a.link.Tick()
	if a.sampled && now-a.lastSample < a.cfg.PublishInterval {
		return
	}
	a.sampled = true
	a.lastSample = now
	a.publishReading(a.reader.Read())
}

// Run steps the loop every LoopInterval until ctx is canceled or a restart
// is requested.
func (a *Agent) Run(ctx context.Context) error {
	start := time.Now()
	ticker := time.NewTicker(a.cfg.LoopInterval)
	defer ticker.Stop()
	for {
		a.Step(time.Since(start))
		if a.restart {
			return ErrRestartRequested
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *Agent) publishReading(r sensor.Reading) {
	if !r.Valid {
		a.log.Warnf("sensor read failed: %s", r.Error)
	}
	if !a.link.Connected() {
		a.log.Debugf("offline, reading not published")
		return
	}
	a.link.Publish(a.topics.Sensors, r.Envelope())
	if !r.Valid {
		return
	}
	a.publishChannel(ChannelTemperature, r.TemperatureC, link.UnitCelsius)
	a.publishChannel(ChannelHumidity, r.HumidityPct, link.UnitPercent)
	if a.cfg.Fahrenheit {
		if f, ok := r.Fahrenheit(); ok {
			a.publishChannel(ChannelTemperatureF, f, link.UnitFahrenheit)
		}
	}
	a.log.Infof("published temperature=%.1fC humidity=%.1f%%", r.TemperatureC, r.HumidityPct)
}

func (a *Agent) publishChannel(name string, value float64, unit string) {
	payload, err := link.EncodeChannel(value, unit)
	if err != nil {
		a.log.Errorf("encode %s: %v", name, err)
		return
	}
	a.link.Publish(a.topics.Channel(name), payload)
}

func (a *Agent) handleMessage(topic string, payload []byte) {
	if topic != a.topics.Commands {
		return
	}
	cmd := strings.TrimSpace(string(payload))
	a.log.Infof("Message arrived [%s] %s", topic, cmd)
	known := true
	switch cmd {
	case CommandStatus:
		a.link.PublishStatus(link.StatusOnline)
	case CommandRestart:
		a.log.Warnf("restart requested over MQTT")
		a.restart = true
	default:
		known = false
		a.log.Debugf("ignoring unknown command %q", cmd)
	}
	if a.bus != nil {
		a.bus.Publish(events.CommandEvent{Topic: topic, Command: cmd, Known: known, Time: a.clock()})
	}
}

// RestartRequested reports whether a restart command was received.
func (a *Agent) RestartRequested() bool { return a.restart }

// Shutdown announces the node as offline and closes the link.
func (a *Agent) Shutdown() {
	if a.link.Connected() {
		a.link.PublishStatus(link.StatusOffline)
	}
	a.link.Close()
}
