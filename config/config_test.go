package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `node:
  namespace: "home"
  id: "kitchen"
  publish_interval_ms: 10000
  publish_fahrenheit: true
  topics:
    commands: "cmd/{node}"
sensor:
  type: "iio"
  retries: 5
  conf:
    device: "/sys/bus/iio/devices/iio:device1"
mqtt:
  broker: "tcp://broker:1883"
  username: "user"
  password: "pass"
  qos: 1
metrics:
  prometheus_addr: ":9108"
  sinks:
    - type: "prometheus"
logging:
  level: "debug"
  format: "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "kitchen", cfg.Node.ID)
	assert.Equal(t, 10*time.Second, cfg.Node.PublishInterval())
	assert.True(t, cfg.Node.PublishFahrenheit)
	assert.Equal(t, "cmd/kitchen", cfg.Node.ResolveTopics().Commands)
	assert.Equal(t, "home/kitchen/sensors/temperature", cfg.Node.ResolveTopics().Channel("temperature"))
	assert.Equal(t, "iio", cfg.Sensor.Module().Type)
	assert.Equal(t, "/sys/bus/iio/devices/iio:device1", cfg.Sensor.Conf["device"])
	assert.Equal(t, uint(5), cfg.Sensor.Retries)
	assert.Equal(t, 2*time.Second, cfg.Sensor.RetryDelay())
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, 5*time.Second, cfg.MQTT.ReconnectCooldown())
	assert.Equal(t, ":9108", cfg.Metrics.PrometheusAddr)
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "prometheus", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "microclaw@0.1.0", cfg.Sentry.Release)
}

func TestLoadDefaults(t *testing.T) {
	orig := hostname
	hostname = func() (string, error) { return "pi.local", nil }
	defer func() { hostname = orig }()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "pi-local", cfg.Node.ID)
	assert.Equal(t, "microclaw", cfg.Node.Agent)
	assert.Equal(t, DefaultVersion, cfg.Node.Version)
	assert.Equal(t, 30*time.Second, cfg.Node.PublishInterval())
	assert.Equal(t, 100*time.Millisecond, cfg.Node.LoopInterval())
	assert.Equal(t, "sim", cfg.Sensor.Type)
	assert.Equal(t, uint(3), cfg.Sensor.Retries)
	assert.Equal(t, "microclaw/pi-local/status", cfg.Node.ResolveTopics().Status)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.json", `{"node":{"id":"n1"},"mqtt":{"broker":"tcp://a:1883"}}`)
	t.Setenv("MICROCLAW_MQTT__BROKER", "tcp://b:1883")
	t.Setenv("MICROCLAW_NODE__PUBLISH_INTERVAL_MS", "5000")
	t.Setenv("MICROCLAW_SENSOR__RETRIES", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://b:1883", cfg.MQTT.Broker)
	assert.Equal(t, 5*time.Second, cfg.Node.PublishInterval())
	assert.Equal(t, uint(4), cfg.Sensor.Retries)
	assert.Equal(t, "n1", cfg.Node.ID)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "node:\n  id: \"a/b\"\n"))
	assert.ErrorContains(t, err, "node:")

	_, err = Load(writeFile(t, "bad.yaml", "node:\n  id: n\nlogging:\n  level: loud\n"))
	assert.ErrorContains(t, err, "logging:")

	_, err = Load(writeFile(t, "bad.yaml", "node:\n  id: n\nmqtt:\n  qos: 3\n"))
	assert.ErrorContains(t, err, "mqtt:")

	_, err = Load(writeFile(t, "bad.yaml", "node:\n  id: n\n  publish_interval_ms: 50\n  loop_interval_ms: 100\n"))
	assert.ErrorContains(t, err, "loop_interval_ms")
}
