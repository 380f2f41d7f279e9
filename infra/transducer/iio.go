package transducer

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/microclaw/core/factory"
	"github.com/kilianp07/microclaw/core/sensor"
	"github.com/kilianp07/microclaw/infra/logger"
)

// IIOConfig points at an industrial I/O device directory such as the one
// created by the kernel dht11 driver.
type IIOConfig struct {
	Device string `json:"device"`
}

// Channel files exposed by humidity/temperature IIO drivers, in milli-units.
const (
	iioTemperature = "in_temp_input"
	iioHumidity    = "in_humidityrelative_input"
)

// IIO reads a sensor through Linux sysfs. The driver returns an error on
// checksum or timing failures; those reads yield NaN.
type IIO struct {
	dir string
	log logger.Logger
}

func NewIIO(cfg IIOConfig) *IIO {
	dir := cfg.Device
	if dir == "" {
		dir = "/sys/bus/iio/devices/iio:device0"
	}
	return &IIO{dir: dir, log: logger.New("transducer-iio")}
}

// Begin checks that the channel files exist.
func (d *IIO) Begin() error {
	for _, name := range []string{iioTemperature, iioHumidity} {
		if _, err := os.Stat(filepath.Join(d.dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (d *IIO) ReadTemperature() float64 { return d.read(iioTemperature) }

func (d *IIO) ReadHumidity() float64 { return d.read(iioHumidity) }

func (d *IIO) read(name string) float64 {
	raw, err := os.ReadFile(filepath.Join(d.dir, name))
	if err != nil {
		d.log.Debugf("read %s: %v", name, err)
		return math.NaN()
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		d.log.Debugf("parse %s: %v", name, err)
		return math.NaN()
	}
	return milli / 1000
}

func init() {
	_ = sensor.RegisterTransducer("iio", func(conf map[string]any) (sensor.Transducer, error) {
		var c IIOConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewIIO(c), nil
	})
}
