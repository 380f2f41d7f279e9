package transducer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/kilianp07/microclaw/core/factory"
	"github.com/kilianp07/microclaw/core/sensor"
	"github.com/kilianp07/microclaw/infra/logger"
)

// SerialConfig describes a device printing "temperature,humidity" lines,
// e.g. a microcontroller wired to the DHT22.
type SerialConfig struct {
	Port          string `json:"port"`
	Baud          int    `json:"baud"`
	MaxAgeMS      int    `json:"max_age_ms"`
	ReadTimeoutMS int    `json:"read_timeout_ms"`
}

func (c *SerialConfig) SetDefaults() {
	if c.Port == "" {
		c.Port = "/dev/ttyUSB0"
	}
	if c.Baud <= 0 {
		c.Baud = 9600
	}
	if c.MaxAgeMS <= 0 {
		c.MaxAgeMS = 5000
	}
}

var openPort = func(c SerialConfig) (io.ReadCloser, error) {
	return serial.OpenPort(&serial.Config{
		Name:        c.Port,
		Baud:        c.Baud,
		ReadTimeout: time.Duration(c.ReadTimeoutMS) * time.Millisecond,
	})
}

type serialSample struct {
	t, h float64
	at   time.Time
}

// Serial reads samples streamed by a device on a serial port. A background
// goroutine keeps the latest sample; reads return NaN when it is older than
// MaxAge or the port is closed.
type Serial struct {
	cfg  SerialConfig
	now  func() time.Time
	log  logger.Logger
	port io.ReadCloser

	mu     sync.Mutex
	latest serialSample
	done   chan struct{}
}

func NewSerial(cfg SerialConfig) *Serial {
	cfg.SetDefaults()
	return &Serial{cfg: cfg, now: time.Now, log: logger.New("transducer-serial")}
}

// Begin opens the port and starts the line reader.
func (s *Serial) Begin() error {
	if s.port != nil {
		return nil
	}
	port, err := openPort(s.cfg)
	if err != nil {
		return fmt.Errorf("open serial %s: %w", s.cfg.Port, err)
	}
	s.port = port
	s.done = make(chan struct{})
	go s.scan(port, s.done)
	s.log.Infof("reading %s at %d baud", s.cfg.Port, s.cfg.Baud)
	return nil
}

func (s *Serial) scan(r io.Reader, done chan struct{}) {
	defer close(done)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		t, h, err := parseLine(line)
		if err != nil {
			s.log.Debugf("skip line %q: %v", line, err)
			continue
		}
		s.mu.Lock()
		s.latest = serialSample{t: t, h: h, at: s.now()}
		s.mu.Unlock()
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.log.Warnf("serial read: %v", err)
	}
}

// parseLine accepts "22.5,40.1". Devices report a failed conversion as "nan".
func parseLine(line string) (float64, float64, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want 2 fields, got %d", len(parts))
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("temperature: %w", err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("humidity: %w", err)
	}
	return t, h, nil
}

func (s *Serial) sample() (serialSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest.at.IsZero() {
		return serialSample{}, false
	}
	if s.now().Sub(s.latest.at) > time.Duration(s.cfg.MaxAgeMS)*time.Millisecond {
		return serialSample{}, false
	}
	return s.latest, true
}

func (s *Serial) ReadTemperature() float64 {
	if v, ok := s.sample(); ok {
		return v.t
	}
	return math.NaN()
}

func (s *Serial) ReadHumidity() float64 {
	if v, ok := s.sample(); ok {
		return v.h
	}
	return math.NaN()
}

// Close stops the reader and releases the port.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	select {
	case <-s.done:
	case <-time.After(time.Second):
		s.log.Warnf("serial reader still blocked after close")
	}
	s.port = nil
	return err
}

func init() {
	_ = sensor.RegisterTransducer("serial", func(conf map[string]any) (sensor.Transducer, error) {
		var c SerialConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSerial(c), nil
	})
}
