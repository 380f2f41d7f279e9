package sensor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Plausible operating range of a DHT22 class sensor. Bounds are inclusive.
const (
	MinTemperatureC = -40.0
	MaxTemperatureC = 80.0
	MinHumidityPct  = 0.0
	MaxHumidityPct  = 100.0
)

// Reading is the outcome of one acquisition cycle. When Valid is false both
// values are NaN and Error holds the human readable cause.
type Reading struct {
	TemperatureC float64
	HumidityPct  float64
	Valid        bool
	Error        string
	Attempts     int
}

// Fahrenheit converts the temperature of a valid reading.
func (r Reading) Fahrenheit() (float64, bool) {
	if !r.Valid {
		return math.NaN(), false
	}
	return CelsiusToFahrenheit(r.TemperatureC), true
}

// CelsiusToFahrenheit applies F = C*9/5+32.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

type okEnvelope struct {
	Temperature json.Number `json:"temperature"`
	Humidity    json.Number `json:"humidity"`
	Status      string      `json:"status"`
}

type errorEnvelope struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// Envelope renders the reading as the JSON success or error envelope.
// Values carry one decimal place.
func (r Reading) Envelope() []byte {
	var v any
	if r.Valid {
		v = okEnvelope{Temperature: fixed(r.TemperatureC, 1), Humidity: fixed(r.HumidityPct, 1), Status: "ok"}
	} else {
		v = errorEnvelope{Error: r.Error, Status: "error"}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"envelope encoding failed","status":"error"}`)
	}
	return b
}

func fixed(v float64, prec int) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', prec, 64))
}

// validate classifies a raw transducer sample. It returns nil for a sample
// that may be surfaced as valid.
func validate(tempC, humidity float64) *ReadError {
	tNaN, hNaN := math.IsNaN(tempC), math.IsNaN(humidity)
	switch {
	case tNaN && hNaN:
		return &ReadError{Kind: ErrTransducerFailure, Msg: "Sensor read failed (both values NaN)"}
	case hNaN:
		return &ReadError{Kind: ErrTransducerFailure, Msg: "Humidity read failed (NaN)"}
	case tNaN:
		return &ReadError{Kind: ErrTransducerFailure, Msg: "Temperature read failed (NaN)"}
	}
	if tempC < MinTemperatureC || tempC > MaxTemperatureC {
		return &ReadError{Kind: ErrRangeViolation, Msg: fmt.Sprintf("Temperature out of range: %.1fC", tempC)}
	}
	if humidity < MinHumidityPct || humidity > MaxHumidityPct {
		return &ReadError{Kind: ErrRangeViolation, Msg: fmt.Sprintf("Humidity out of range: %.1f%%", humidity)}
	}
	return nil
}
