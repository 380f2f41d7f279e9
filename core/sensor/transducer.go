package sensor

import "github.com/kilianp07/microclaw/core/factory"

// Transducer is the raw sensing element. Both reads return NaN when the
// device or the link to it failed.
type Transducer interface {
	// Begin initializes the device. It is called once before the first read.
	Begin() error
	ReadTemperature() float64
	ReadHumidity() float64
}

var transducers = factory.NewRegistry[Transducer]()

// RegisterTransducer adds a transducer factory identified by name.
func RegisterTransducer(name string, f factory.Factory[Transducer]) error {
	return transducers.Register(name, f)
}

// NewTransducer builds the transducer described by cfg.
func NewTransducer(cfg factory.ModuleConfig) (Transducer, error) {
	return transducers.Create(cfg)
}

// TransducerTypes lists the registered transducer types.
func TransducerTypes() []string { return transducers.Names() }
