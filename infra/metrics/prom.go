package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/microclaw/core/events"
)

// PromSink exposes node telemetry as Prometheus metrics.
type PromSink struct {
	reads       *prometheus.CounterVec
	attempts    prometheus.Histogram
	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	connected   prometheus.Gauge
	connects    prometheus.Counter
	failures    *prometheus.CounterVec
	publishes   *prometheus.CounterVec
	commands    *prometheus.CounterVec
}

// NewPromSink registers the node metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.reads, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "microclaw_sensor_reads_total",
		Help: "Sensor read cycles by result (ok, transducer, range)",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if s.attempts, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "microclaw_sensor_read_attempts",
		Help:    "Attempts consumed per sensor read cycle",
		Buckets: prometheus.LinearBuckets(1, 1, 5),
	})); err != nil {
		return nil, err
	}
	if s.temperature, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "microclaw_sensor_temperature_celsius",
		Help: "Last valid temperature reading",
	})); err != nil {
		return nil, err
	}
	if s.humidity, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "microclaw_sensor_humidity_percent",
		Help: "Last valid relative humidity reading",
	})); err != nil {
		return nil, err
	}
	if s.connected, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "microclaw_link_connected",
		Help: "1 when the broker connection is up",
	})); err != nil {
		return nil, err
	}
	if s.connects, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "microclaw_link_connect_attempts_total",
		Help: "Broker connection attempts",
	})); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "microclaw_link_failures_total",
		Help: "Failed attempts and dropped connections by reason code (-1 when none)",
	}, []string{"code"})); err != nil {
		return nil, err
	}
	if s.publishes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "microclaw_mqtt_publishes_total",
		Help: "Publish calls by outcome",
	}, []string{"retained", "ok"})); err != nil {
		return nil, err
	}
	if s.commands, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "microclaw_commands_total",
		Help: "Commands received on the command topic",
	}, []string{"command"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordReading counts the cycle and updates the gauges on success.
func (s *PromSink) RecordReading(ev events.ReadingEvent) error {
	kind := ev.Kind
	if kind == "" {
		kind = "ok"
	}
	s.reads.WithLabelValues(kind).Inc()
	if ev.Attempts > 0 {
		s.attempts.Observe(float64(ev.Attempts))
	}
	if ev.Valid {
		s.temperature.Set(ev.TemperatureC)
		s.humidity.Set(ev.HumidityPct)
	}
	return nil
}

// RecordConnection tracks the link state and failure codes.
func (s *PromSink) RecordConnection(ev events.ConnectionEvent) error {
	switch ev.State {
	case "connecting":
		s.connects.Inc()
	case "connected":
		s.connected.Set(1)
	case "disconnected":
		s.connected.Set(0)
		if ev.Err != nil {
			s.failures.WithLabelValues(strconv.Itoa(ev.Code)).Inc()
		}
	}
	return nil
}

func (s *PromSink) RecordPublish(ev events.PublishEvent) error {
	s.publishes.WithLabelValues(strconv.FormatBool(ev.Retained), strconv.FormatBool(ev.OK)).Inc()
	return nil
}

// RecordCommand counts commands. Unknown commands share one label value.
func (s *PromSink) RecordCommand(ev events.CommandEvent) error {
	cmd := ev.Command
	if !ev.Known {
		cmd = "unknown"
	}
	s.commands.WithLabelValues(cmd).Inc()
	return nil
}
