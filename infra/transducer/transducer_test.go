package transducer

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microclaw/core/factory"
	"github.com/kilianp07/microclaw/core/sensor"
)

type pipePort struct {
	*io.PipeReader
	w *io.PipeWriter
}

func (p pipePort) Close() error {
	_ = p.w.Close()
	return p.PipeReader.Close()
}

func withPipePort(t *testing.T) *io.PipeWriter {
	t.Helper()
	r, w := io.Pipe()
	orig := openPort
	openPort = func(SerialConfig) (io.ReadCloser, error) { return pipePort{r, w}, nil }
	t.Cleanup(func() { openPort = orig })
	return w
}

func TestParseLine(t *testing.T) {
	tc, h, err := parseLine(" 22.5 , 40.1 ")
	require.NoError(t, err)
	assert.Equal(t, 22.5, tc)
	assert.Equal(t, 40.1, h)

	tc, h, err = parseLine("nan,nan")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(tc))
	assert.True(t, math.IsNaN(h))

	_, _, err = parseLine("22.5")
	assert.Error(t, err)
	_, _, err = parseLine("x,1")
	assert.ErrorContains(t, err, "temperature")
}

func TestSerialLatestSample(t *testing.T) {
	w := withPipePort(t)
	s := NewSerial(SerialConfig{Port: "/dev/null", MaxAgeMS: 1000})
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	assert.True(t, math.IsNaN(s.ReadTemperature()), "no sample before Begin")
	require.NoError(t, s.Begin())

	_, err := io.WriteString(w, "garbage\n21.0,50.0\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.ReadTemperature() == 21.0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 50.0, s.ReadHumidity())

	now = now.Add(2 * time.Second)
	assert.True(t, math.IsNaN(s.ReadHumidity()), "stale sample")

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestSerialBeginError(t *testing.T) {
	orig := openPort
	openPort = func(SerialConfig) (io.ReadCloser, error) { return nil, errors.New("no such device") }
	defer func() { openPort = orig }()

	err := NewSerial(SerialConfig{Port: "/dev/ttyACM9"}).Begin()
	assert.ErrorContains(t, err, "/dev/ttyACM9")
}

func TestSimDeterministic(t *testing.T) {
	a := NewSim(SimConfig{Seed: 42})
	b := NewSim(SimConfig{Seed: 42})
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.ReadTemperature(), b.ReadTemperature())
		assert.Equal(t, a.ReadHumidity(), b.ReadHumidity())
	}
}

func TestSimFailureRate(t *testing.T) {
	always := NewSim(SimConfig{Seed: 1, FailureRate: 1})
	assert.True(t, math.IsNaN(always.ReadTemperature()))
	assert.True(t, math.IsNaN(always.ReadHumidity()))

	fixed := NewSim(SimConfig{Seed: 1, TemperatureMean: 30, HumidityMean: 60, HumidityStdDev: 0})
	assert.Equal(t, 30.0, fixed.ReadTemperature())
	assert.Equal(t, 60.0, fixed.ReadHumidity())
}

func TestSimThroughReader(t *testing.T) {
	sim := NewSim(SimConfig{Seed: 7, FailureRate: 0.3})
	r := sensor.NewReader(sim, sensor.WithRetries(5), sensor.WithSleeper(func(time.Duration) {}))
	valid := 0
	for i := 0; i < 50; i++ {
		if r.Read().Valid {
			valid++
		}
	}
	assert.Greater(t, valid, 40)
}

func writeChannel(t *testing.T, dir, name, value string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(value), 0o644))
}

func TestIIO(t *testing.T) {
	dir := t.TempDir()
	d := NewIIO(IIOConfig{Device: dir})
	assert.Error(t, d.Begin())

	writeChannel(t, dir, iioTemperature, "22500\n")
	writeChannel(t, dir, iioHumidity, "41300\n")
	require.NoError(t, d.Begin())
	assert.Equal(t, 22.5, d.ReadTemperature())
	assert.Equal(t, 41.3, d.ReadHumidity())

	writeChannel(t, dir, iioHumidity, "")
	assert.True(t, math.IsNaN(d.ReadHumidity()))
	require.NoError(t, os.Remove(filepath.Join(dir, iioTemperature)))
	assert.True(t, math.IsNaN(d.ReadTemperature()))
}

func TestRegistered(t *testing.T) {
	types := sensor.TransducerTypes()
	for _, name := range []string{"iio", "serial", "sim"} {
		assert.Contains(t, types, name)
	}
	tr, err := sensor.NewTransducer(factory.ModuleConfig{Type: "sim", Conf: map[string]any{"seed": "3", "failure_rate": 0}})
	require.NoError(t, err)
	assert.IsType(t, &Sim{}, tr)

	_, err = sensor.NewTransducer(factory.ModuleConfig{Type: "dht11"})
	assert.True(t, strings.Contains(err.Error(), "unknown module type"))
}
