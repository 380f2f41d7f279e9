package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kilianp07/microclaw/core/link"
)

// DefaultVersion is reported in the status payload unless node.version is
// set. Release builds override it with -ldflags "-X".
var DefaultVersion = "0.1.0"

// NodeConfig identifies the node and sets the loop cadence.
type NodeConfig struct {
	Agent     string `json:"agent"`
	Namespace string `json:"namespace"`
	// ID defaults to the host name.
	ID                string              `json:"id"`
	Version           string              `json:"version"`
	PublishIntervalMS int                 `json:"publish_interval_ms"`
	LoopIntervalMS    int                 `json:"loop_interval_ms"`
	PublishFahrenheit bool                `json:"publish_fahrenheit"`
	Topics            link.TopicTemplates `json:"topics"`
}

var hostname = os.Hostname

func (c *NodeConfig) SetDefaults() {
	if c.Agent == "" {
		c.Agent = "microclaw"
	}
	if c.Namespace == "" {
		c.Namespace = "microclaw"
	}
	if c.ID == "" {
		if h, err := hostname(); err == nil {
			c.ID = sanitizeTopicLevel(h)
		}
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.PublishIntervalMS <= 0 {
		c.PublishIntervalMS = 30000
	}
	if c.LoopIntervalMS <= 0 {
		c.LoopIntervalMS = 100
	}
}

func (c NodeConfig) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	for name, v := range map[string]string{"namespace": c.Namespace, "id": c.ID} {
		if strings.ContainsAny(v, "+#/") {
			return fmt.Errorf("%s %q must not contain '+', '#' or '/'", name, v)
		}
	}
	if c.LoopIntervalMS > c.PublishIntervalMS {
		return fmt.Errorf("loop_interval_ms (%d) exceeds publish_interval_ms (%d)", c.LoopIntervalMS, c.PublishIntervalMS)
	}
	return nil
}

// ResolveTopics applies the topic templates to this node.
func (c NodeConfig) ResolveTopics() link.Topics {
	return link.NewTopics(c.Namespace, c.ID, c.Topics)
}

func (c NodeConfig) PublishInterval() time.Duration {
	return time.Duration(c.PublishIntervalMS) * time.Millisecond
}

func (c NodeConfig) LoopInterval() time.Duration {
	return time.Duration(c.LoopIntervalMS) * time.Millisecond
}

func sanitizeTopicLevel(s string) string {
	return strings.NewReplacer("+", "-", "#", "-", "/", "-", ".", "-").Replace(s)
}
