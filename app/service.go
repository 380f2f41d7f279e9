package app

import (
	"context"
	"fmt"
	"io"

	"github.com/kilianp07/microclaw/config"
	"github.com/kilianp07/microclaw/core/factory"
	"github.com/kilianp07/microclaw/core/link"
	coremetrics "github.com/kilianp07/microclaw/core/metrics"
	coremon "github.com/kilianp07/microclaw/core/monitoring"
	"github.com/kilianp07/microclaw/core/sensor"
	"github.com/kilianp07/microclaw/infra/logger"
	"github.com/kilianp07/microclaw/infra/metrics"
	"github.com/kilianp07/microclaw/infra/mqtt"
	"github.com/kilianp07/microclaw/internal/eventbus"

	_ "github.com/kilianp07/microclaw/app/plugins"
)

// Service wires the sensor node from its configuration.
type Service struct {
	Agent      *Agent
	Reader     *sensor.Reader
	Link       *link.Manager
	transducer sensor.Transducer
	sink       coremetrics.Sink
	bus        eventbus.EventBus
	log        logger.Logger
	cfg        *config.Config
}

// New creates a Service from the configuration. Nothing is connected or
// opened until Run.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	transducer, err := sensor.NewTransducer(cfg.Sensor.Module())
	if err != nil {
		return nil, fmt.Errorf("transducer: %w", err)
	}

	topics := cfg.Node.ResolveTopics()
	status := NewStatusReporter(cfg.Node.Agent, cfg.Node.Version)

	mqttCfg := cfg.MQTT
	if mqttCfg.LWTTopic == "" {
		mqttCfg.LWTTopic = topics.Status
		mqttCfg.LWTPayload = string(status.Offline())
		mqttCfg.LWTQoS = 1
		mqttCfg.LWTRetain = true
	}
	transport, err := mqtt.NewPahoTransport(mqttCfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt transport: %w", err)
	}

	sink, err := coremetrics.NewSink(withNodeTag(cfg.Metrics.Sinks, cfg.Node.ID))
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := eventbus.New()
	reader := sensor.NewReader(transducer,
		sensor.WithRetries(cfg.Sensor.Retries),
		sensor.WithRetryDelay(cfg.Sensor.RetryDelay()),
		sensor.WithLogger(logger.New("sensor")),
		sensor.WithEventBus(bus),
	)
	mgr := link.NewManager(transport, topics, cfg.Node.Version,
		link.WithCooldown(mqttCfg.ReconnectCooldown()),
		link.WithLogger(logger.New("link")),
		link.WithEventBus(bus),
		link.WithStatusPayload(status.Payload),
	)
	agent := NewAgent(reader, mgr, AgentConfig{
		PublishInterval: cfg.Node.PublishInterval(),
		LoopInterval:    cfg.Node.LoopInterval(),
		Fahrenheit:      cfg.Node.PublishFahrenheit,
	}, WithAgentLogger(logger.New("agent")), WithAgentEventBus(bus))

	return &Service{
		Agent:      agent,
		Reader:     reader,
		Link:       mgr,
		transducer: transducer,
		sink:       sink,
		bus:        bus,
		log:        log,
		cfg:        cfg,
	}, nil
}

// withNodeTag copies the sink configs and sets the node tag on sinks that
// support one.
func withNodeTag(cfgs []factory.ModuleConfig, node string) []factory.ModuleConfig {
	out := make([]factory.ModuleConfig, len(cfgs))
	for i, c := range cfgs {
		conf := make(map[string]any, len(c.Conf)+1)
		for k, v := range c.Conf {
			conf[k] = v
		}
		if c.Type == "influx" {
			if _, ok := conf["node"]; !ok {
				conf["node"] = node
			}
		}
		out[i] = factory.ModuleConfig{Type: c.Type, Conf: conf}
	}
	return out
}

// Run initializes the sensor, starts the metrics plumbing and blocks in the
// agent loop until the context is cancelled or a restart is requested.
func (s *Service) Run(ctx context.Context) error {
	s.log.Infof("%s v%s starting, node %s", s.cfg.Node.Agent, s.cfg.Node.Version, s.cfg.Node.ID)
	if err := s.Reader.Begin(); err != nil {
		return fmt.Errorf("sensor: %w", err)
	}

	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			defer coremon.Recover()
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s.Agent.Run(ctx)
}

// Close announces the node offline and releases resources held by the service.
func (s *Service) Close() error {
	s.Agent.Shutdown()
	s.bus.Close()
	if c, ok := s.sink.(coremetrics.Closer); ok {
		c.Close()
	}
	if c, ok := s.transducer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
