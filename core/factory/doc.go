// Package factory is a small generic registry used to build pluggable
// modules (transducers, metric sinks) from configuration. A module is named
// by a type string and configured by a raw map decoded with json tags.
//
//	reg := factory.NewRegistry[sensor.Transducer]()
//	_ = reg.Register("sim", func(conf map[string]any) (sensor.Transducer, error) {
//	    var c struct{ BaseC float64 `json:"base_c"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newSim(c.BaseC), nil
//	})
//	t, err := reg.Create(factory.ModuleConfig{Type: "sim"})
package factory
