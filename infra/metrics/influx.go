package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/microclaw/core/events"
	coremetrics "github.com/kilianp07/microclaw/core/metrics"
	"github.com/kilianp07/microclaw/infra/logger"
)

// InfluxConfig holds the InfluxDB v2 endpoint settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Node is written as the "node" tag on every point.
	Node string `json:"node"`
}

// InfluxSink writes node telemetry to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	node     string
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		node:     cfg.Node,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) point(measurement string, ts time.Time) *write.Point {
	p := write.NewPointWithMeasurement(measurement)
	if s.node != "" {
		p.AddTag("node", s.node)
	}
	return p.SetTime(ts)
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordReading writes one "sensor_reading" point per read cycle. Values are
// only present for valid readings.
func (s *InfluxSink) RecordReading(ev events.ReadingEvent) error {
	p := s.point("sensor_reading", ev.Time).
		AddTag("result", ev.Kind).
		AddField("attempts", ev.Attempts)
	if ev.Valid {
		p.AddField("temperature_c", round2(ev.TemperatureC)).
			AddField("humidity_pct", round2(ev.HumidityPct))
	} else {
		p.AddField("error", ev.Error)
	}
	return s.write(p)
}

// RecordConnection writes link state transitions.
func (s *InfluxSink) RecordConnection(ev events.ConnectionEvent) error {
	p := s.point("link_state", ev.Time).
		AddTag("state", ev.State).
		AddField("attempt", ev.Attempt).
		AddField("code", ev.Code)
	if ev.Err != nil {
		p.AddField("error", ev.Err.Error())
	}
	return s.write(p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
