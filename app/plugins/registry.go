package plugins

import (
	coremetrics "github.com/kilianp07/microclaw/core/metrics"
	"github.com/kilianp07/microclaw/core/sensor"
)

// Kind names a family of pluggable modules.
type Kind string

const (
	KindTransducer Kind = "transducer"
	KindMetrics    Kind = "metrics"
)

// Available lists the registered module types per kind.
func Available() map[Kind][]string {
	return map[Kind][]string{
		KindTransducer: sensor.TransducerTypes(),
		KindMetrics:    coremetrics.SinkTypes(),
	}
}
