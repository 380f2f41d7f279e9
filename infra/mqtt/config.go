package mqtt

import (
	"errors"
	"fmt"
	"time"
)

// Config defines the connection parameters for the Paho MQTT transport.
type Config struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	QoS      byte   `json:"qos"`

	KeepAliveSeconds    int `json:"keep_alive_seconds"`
	ConnectTimeoutMS    int `json:"connect_timeout_ms"`
	PublishTimeoutMS    int `json:"publish_timeout_ms"`
	ReconnectCooldownMS int `json:"reconnect_cooldown_ms"`
	// InboxSize bounds the inbound messages queued between two Service calls.
	InboxSize int `json:"inbox_size"`

	LWTTopic   string `json:"lwt_topic"`
	LWTPayload string `json:"lwt_payload"`
	LWTQoS     byte   `json:"lwt_qos"`
	LWTRetain  bool   `json:"lwt_retain"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.KeepAliveSeconds <= 0 {
		c.KeepAliveSeconds = 60
	}
	if c.ConnectTimeoutMS <= 0 {
		c.ConnectTimeoutMS = 5000
	}
	if c.PublishTimeoutMS <= 0 {
		c.PublishTimeoutMS = 5000
	}
	if c.ReconnectCooldownMS <= 0 {
		c.ReconnectCooldownMS = 5000
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 32
	}
}

// Validate checks the broker address and QoS levels.
func (c Config) Validate() error {
	if c.Broker == "" {
		return errors.New("mqtt.broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.LWTQoS > 2 {
		return fmt.Errorf("mqtt.lwt_qos must be 0, 1 or 2, got %d", c.LWTQoS)
	}
	return nil
}

// ReconnectCooldown returns the minimum spacing between connection attempts.
func (c Config) ReconnectCooldown() time.Duration {
	return time.Duration(c.ReconnectCooldownMS) * time.Millisecond
}
