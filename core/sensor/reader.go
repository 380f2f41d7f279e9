package sensor

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kilianp07/microclaw/core/events"
	"github.com/kilianp07/microclaw/core/logger"
	"github.com/kilianp07/microclaw/core/monitoring"
	"github.com/kilianp07/microclaw/internal/eventbus"
)

const (
	DefaultRetries    uint = 3
	DefaultRetryDelay      = 2000 * time.Millisecond
)

// Reader performs validated, retried acquisitions and remembers the outcome
// of the last one.
type Reader struct {
	transducer Transducer
	maxRetries uint
	retryDelay time.Duration
	sleep      func(time.Duration)
	now        func() time.Time
	log        logger.Logger
	bus        eventbus.EventBus

	lastReadOK bool
	lastError  string
	lastErr    error
}

// Option customizes a Reader.
type Option func(*Reader)

// WithRetries sets the number of attempts per read. Zero keeps the default.
func WithRetries(n uint) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

// WithRetryDelay sets the pause between two failed attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Reader) {
		if d >= 0 {
			r.retryDelay = d
		}
	}
}

// WithSleeper replaces time.Sleep for the inter-attempt wait.
func WithSleeper(fn func(time.Duration)) Option {
	return func(r *Reader) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(fn func() time.Time) Option {
	return func(r *Reader) {
		if fn != nil {
			r.now = fn
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithEventBus publishes an events.ReadingEvent after every read cycle.
func WithEventBus(b eventbus.EventBus) Option {
	return func(r *Reader) { r.bus = b }
}

// NewReader wraps t with the default retry policy (3 attempts, 2 s apart).
func NewReader(t Transducer, opts ...Option) *Reader {
	r := &Reader{
		transducer: t,
		maxRetries: DefaultRetries,
		retryDelay: DefaultRetryDelay,
		sleep:      time.Sleep,
		now:        time.Now,
		log:        logger.Nop{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Begin initializes the transducer and clears the last status.
func (r *Reader) Begin() error {
	r.lastReadOK = false
	r.lastError = ""
	r.lastErr = nil
	if err := r.transducer.Begin(); err != nil {
		return fmt.Errorf("transducer begin: %w", err)
	}
	return nil
}

// Read runs one acquisition cycle. It returns on the first attempt that
// yields two numeric in-range values.
func (r *Reader) Read() Reading {
	var cause *ReadError
	for attempt := 1; attempt <= int(r.maxRetries); attempt++ {
		humidity := r.transducer.ReadHumidity()
		tempC := r.transducer.ReadTemperature()

		cause = validate(tempC, humidity)
		if cause == nil {
			r.lastReadOK = true
			r.lastError = ""
			r.lastErr = nil
			reading := Reading{TemperatureC: tempC, HumidityPct: humidity, Valid: true, Attempts: attempt}
			r.emit(reading, nil)
			return reading
		}

		r.lastReadOK = false
		r.lastError = cause.Msg
		r.lastErr = cause
		r.log.Debugw("sensor attempt failed", map[string]any{
			"attempt": attempt,
			"of":      r.maxRetries,
			"error":   cause.Msg,
		})
		if attempt < int(r.maxRetries) {
			r.sleep(r.retryDelay)
		}
	}

	cause.Attempts = int(r.maxRetries)
	r.lastError = cause.Error()
	r.lastErr = cause
	r.log.Warnf("sensor read failed: %s", r.lastError)
	monitoring.CaptureException(cause, map[string]string{
		"module":   "sensor",
		"kind":     kindLabel(cause),
		"attempts": strconv.Itoa(cause.Attempts),
	})

	reading := Reading{
		TemperatureC: math.NaN(),
		HumidityPct:  math.NaN(),
		Error:        r.lastError,
		Attempts:     cause.Attempts,
	}
	r.emit(reading, cause)
	return reading
}

func (r *Reader) emit(reading Reading, err error) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.ReadingEvent{
		TemperatureC: reading.TemperatureC,
		HumidityPct:  reading.HumidityPct,
		Valid:        reading.Valid,
		Error:        reading.Error,
		Kind:         kindLabel(err),
		Attempts:     reading.Attempts,
		Time:         r.now(),
	})
}

// Celsius performs a full read and returns the temperature.
func (r *Reader) Celsius() (float64, bool) {
	reading := r.Read()
	if !reading.Valid {
		return math.NaN(), false
	}
	return reading.TemperatureC, true
}

// Fahrenheit performs a full read and converts the temperature.
func (r *Reader) Fahrenheit() (float64, bool) {
	c, ok := r.Celsius()
	if !ok {
		return math.NaN(), false
	}
	return CelsiusToFahrenheit(c), true
}

// Humidity performs a full read and returns the relative humidity.
func (r *Reader) Humidity() (float64, bool) {
	reading := r.Read()
	if !reading.Valid {
		return math.NaN(), false
	}
	return reading.HumidityPct, true
}

// ReadBoth performs a single read and returns both values.
func (r *Reader) ReadBoth() (tempC, humidity float64, ok bool) {
	reading := r.Read()
	return reading.TemperatureC, reading.HumidityPct, reading.Valid
}

// JSON performs a full read and renders the result envelope.
func (r *Reader) JSON() []byte {
	return r.Read().Envelope()
}

// LastReadOK reports whether the last read cycle succeeded.
func (r *Reader) LastReadOK() bool { return r.lastReadOK }

// LastError is the message of the last failed cycle, empty after a success.
func (r *Reader) LastError() string { return r.lastError }

// LastErr is the typed cause behind LastError, nil after a success.
func (r *Reader) LastErr() error { return r.lastErr }

// RetryPolicy returns the configured attempts and delay.
func (r *Reader) RetryPolicy() (uint, time.Duration) { return r.maxRetries, r.retryDelay }
