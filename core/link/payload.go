package link

import (
	"encoding/json"
	"strconv"
)

// Units used in channel payloads.
const (
	UnitCelsius    = "C"
	UnitFahrenheit = "F"
	UnitPercent    = "%"
)

// Status values carried by the status payload.
const (
	StatusOnline      = "online"
	StatusReconnected = "reconnected"
	StatusOffline     = "offline"
)

// ChannelPayload is the per-channel telemetry document.
type ChannelPayload struct {
	Value json.Number `json:"value"`
	Unit  string      `json:"unit"`
}

// EncodeChannel renders {"value":<2dp>,"unit":"<unit>"}.
func EncodeChannel(value float64, unit string) ([]byte, error) {
	return json.Marshal(ChannelPayload{
		Value: json.Number(strconv.FormatFloat(value, 'f', 2, 64)),
		Unit:  unit,
	})
}

// StatusPayload is published retained on the status topic.
type StatusPayload struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Agent   string `json:"agent,omitempty"`
	// Uptime in seconds.
	Uptime  int64  `json:"uptime,omitempty"`
	FreeMem uint64 `json:"free_mem,omitempty"`
}

// EncodeStatus renders the status document.
func EncodeStatus(s StatusPayload) ([]byte, error) {
	return json.Marshal(s)
}
