package transducer

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/microclaw/core/factory"
	"github.com/kilianp07/microclaw/core/sensor"
)

// SimConfig parameterizes the simulated transducer. Values are drawn from
// normal distributions; FailureRate is the probability that a single read
// returns NaN.
type SimConfig struct {
	TemperatureMean   float64 `json:"temperature_mean"`
	TemperatureStdDev float64 `json:"temperature_stddev"`
	HumidityMean      float64 `json:"humidity_mean"`
	HumidityStdDev    float64 `json:"humidity_stddev"`
	FailureRate       float64 `json:"failure_rate"`
	// Seed makes the sequence reproducible. Zero seeds from the clock.
	Seed uint64 `json:"seed"`
}

func (c *SimConfig) SetDefaults() {
	if c.TemperatureMean == 0 && c.TemperatureStdDev == 0 {
		c.TemperatureMean, c.TemperatureStdDev = 22, 0.5
	}
	if c.HumidityMean == 0 && c.HumidityStdDev == 0 {
		c.HumidityMean, c.HumidityStdDev = 45, 2
	}
	if c.FailureRate < 0 {
		c.FailureRate = 0
	}
	if c.FailureRate > 1 {
		c.FailureRate = 1
	}
}

// Sim is a transducer for development without hardware.
type Sim struct {
	temperature distuv.Normal
	humidity    distuv.Normal
	failure     distuv.Bernoulli
}

func NewSim(cfg SimConfig) *Sim {
	cfg.SetDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Sim{
		temperature: distuv.Normal{Mu: cfg.TemperatureMean, Sigma: cfg.TemperatureStdDev, Src: src},
		humidity:    distuv.Normal{Mu: cfg.HumidityMean, Sigma: cfg.HumidityStdDev, Src: src},
		failure:     distuv.Bernoulli{P: cfg.FailureRate, Src: src},
	}
}

func (s *Sim) Begin() error { return nil }

func (s *Sim) ReadTemperature() float64 { return s.draw(s.temperature) }

func (s *Sim) ReadHumidity() float64 { return s.draw(s.humidity) }

func (s *Sim) draw(d distuv.Normal) float64 {
	if s.failure.P > 0 && s.failure.Rand() == 1 {
		return math.NaN()
	}
	if d.Sigma == 0 {
		return d.Mu
	}
	return d.Rand()
}

func init() {
	_ = sensor.RegisterTransducer("sim", func(conf map[string]any) (sensor.Transducer, error) {
		var c SimConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSim(c), nil
	})
}
