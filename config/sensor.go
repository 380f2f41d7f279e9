package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/microclaw/core/factory"
	"github.com/kilianp07/microclaw/core/sensor"
)

// SensorConfig selects the transducer and the retry policy of the reader.
type SensorConfig struct {
	// Type names a registered transducer: "iio", "serial" or "sim".
	Type         string         `json:"type"`
	Retries      uint           `json:"retries"`
	RetryDelayMS int            `json:"retry_delay_ms"`
	Conf         map[string]any `json:"conf"`
}

func (c *SensorConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "sim"
	}
	if c.Retries == 0 {
		c.Retries = sensor.DefaultRetries
	}
	if c.RetryDelayMS <= 0 {
		c.RetryDelayMS = int(sensor.DefaultRetryDelay / time.Millisecond)
	}
}

func (c SensorConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.RetryDelayMS < 0 {
		return fmt.Errorf("retry_delay_ms must not be negative")
	}
	return nil
}

// Module returns the factory configuration of the transducer.
func (c SensorConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Type, Conf: c.Conf}
}

func (c SensorConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}
