package link

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kilianp07/microclaw/core/events"
	"github.com/kilianp07/microclaw/core/logger"
	"github.com/kilianp07/microclaw/core/monitoring"
	"github.com/kilianp07/microclaw/internal/eventbus"
)

// DefaultCooldown is the minimum spacing between two connection attempts.
const DefaultCooldown = 5000 * time.Millisecond

// StatusFunc renders the retained status document for the given status value
// ("online", "reconnected").
type StatusFunc func(status string) ([]byte, error)

// Manager drives the connection lifecycle of a Transport. It is not safe for
// concurrent use: a single loop calls EnsureConnected, Tick and Publish.
type Manager struct {
	transport Transport
	topics    Topics
	cooldown  time.Duration
	statusFn  StatusFunc
	announce  bool
	log       logger.Logger
	bus       eventbus.EventBus
	clock     func() time.Time

	state       State
	attempted   bool
	lastAttempt time.Duration
	attempts    int
	sessions    int
	failStreak  int
	lastCode    int
	lastErr     error
	handler     MessageHandler
}

// Option customizes a Manager.
type Option func(*Manager)

// WithCooldown overrides DefaultCooldown. Non-positive values are ignored.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.cooldown = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithEventBus publishes connection and publish events.
func WithEventBus(b eventbus.EventBus) Option {
	return func(m *Manager) { m.bus = b }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.clock = fn
		}
	}
}

// WithStatusPayload replaces the default status document builder.
func WithStatusPayload(fn StatusFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.statusFn = fn
		}
	}
}

// WithoutStatus disables the retained status announcement on connect.
func WithoutStatus() Option {
	return func(m *Manager) { m.announce = false }
}

// NewManager wraps t. The version is reported in the default status payload.
func NewManager(t Transport, topics Topics, version string, opts ...Option) *Manager {
	m := &Manager{
		transport: t,
		topics:    topics,
		cooldown:  DefaultCooldown,
		announce:  true,
		log:       logger.Nop{},
		clock:     time.Now,
		state:     Disconnected,
		lastCode:  NoCode,
	}
	m.statusFn = func(status string) ([]byte, error) {
		return EncodeStatus(StatusPayload{Status: status, Version: version})
	}
	for _, o := range opts {
		o(m)
	}
	t.SetMessageHandler(m.dispatch)
	return m
}

// OnMessage registers the handler for inbound messages on subscribed topics.
func (m *Manager) OnMessage(h MessageHandler) { m.handler = h }

func (m *Manager) dispatch(topic string, payload []byte) {
	if m.handler != nil {
		m.handler(topic, payload)
	}
}

// EnsureConnected attempts a connection when disconnected and the cooldown
// since the previous attempt has elapsed. now is the monotonic time elapsed
// since the node started. The first attempt is never delayed. It reports
// whether the manager is connected on return.
func (m *Manager) EnsureConnected(now time.Duration) bool {
	if m.state == Connected {
		return true
	}
	if m.attempted && now-m.lastAttempt < m.cooldown {
		return false
	}
	m.attempted = true
	m.lastAttempt = now
	m.attempts++

	m.setState(Connecting, NoCode, nil)
	m.log.Infof("Attempting MQTT connection (attempt %d)", m.attempts)

	if err := m.transport.Connect(); err != nil {
		m.failStreak++
		m.lastErr = err
		m.lastCode = codeOf(err)
		m.log.Errorf("MQTT connection failed, rc=%d: %v", m.lastCode, err)
		m.setState(Disconnected, m.lastCode, err)
		if m.failStreak == 1 {
			monitoring.CaptureException(err, map[string]string{
				"module": "link",
				"rc":     strconv.Itoa(m.lastCode),
			})
		}
		return false
	}

	m.failStreak = 0
	m.lastErr = nil
	m.sessions++
	m.setState(Connected, NoCode, nil)
	m.log.Infof("MQTT connected")

	if m.topics.Commands != "" {
		if err := m.transport.Subscribe(m.topics.Commands); err != nil {
			m.log.Warnf("subscribe %s: %v", m.topics.Commands, err)
		} else {
			m.log.Infof("Subscribed to: %s", m.topics.Commands)
		}
	}
	if m.announce {
		status := StatusOnline
		if m.sessions > 1 {
			status = StatusReconnected
		}
		m.PublishStatus(status)
	}
	return true
}

// Tick services the transport. A drop observed here moves the manager to
// Disconnected; the next EnsureConnected call decides when to retry.
func (m *Manager) Tick() {
	if m.state != Connected {
		return
	}
	if !m.transport.IsConnected() {
		m.log.Warnf("MQTT connection lost")
		m.setState(Disconnected, NoCode, ErrDisconnected)
		return
	}
	m.transport.Service()
}

// Publish sends a non-retained message. It returns false without touching
// the transport when not connected.
func (m *Manager) Publish(topic string, payload []byte) bool {
	return m.send(topic, payload, false) == nil
}

// PublishRetained sends a retained message.
func (m *Manager) PublishRetained(topic string, payload []byte) bool {
	return m.send(topic, payload, true) == nil
}

// PublishStatus publishes the retained status document.
func (m *Manager) PublishStatus(status string) bool {
	payload, err := m.statusFn(status)
	if err != nil {
		m.log.Errorf("status payload: %v", err)
		return false
	}
	return m.PublishRetained(m.topics.Status, payload)
}

func (m *Manager) send(topic string, payload []byte, retained bool) error {
	var err error
	if m.state != Connected {
		err = ErrDisconnected
	} else if perr := m.transport.Publish(topic, payload, retained); perr != nil {
		err = fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, perr)
		m.log.Warnf("publish %s failed: %v", topic, perr)
	}
	if m.bus != nil {
		m.bus.Publish(events.PublishEvent{Topic: topic, Retained: retained, OK: err == nil, Time: m.clock()})
	}
	return err
}

// Close disconnects the transport.
func (m *Manager) Close() {
	if m.state == Connected {
		m.transport.Disconnect()
	}
	m.setState(Disconnected, NoCode, nil)
}

func (m *Manager) setState(s State, code int, err error) {
	changed := s != m.state
	m.state = s
	if m.bus == nil || (!changed && err == nil) {
		return
	}
	m.bus.Publish(events.ConnectionEvent{
		State:   s.String(),
		Attempt: m.attempts,
		Code:    code,
		Err:     err,
		Time:    m.clock(),
	})
}

// State returns the current connection state.
func (m *Manager) State() State { return m.state }

// Connected reports whether the manager believes the link is up.
func (m *Manager) Connected() bool { return m.state == Connected }

// Attempts is the number of connection attempts made so far.
func (m *Manager) Attempts() int { return m.attempts }

// Sessions counts successful connections.
func (m *Manager) Sessions() int { return m.sessions }

// LastFailureCode is the reason code of the most recent refused attempt, or
// NoCode.
func (m *Manager) LastFailureCode() int { return m.lastCode }

// LastErr is the error of the last attempt, nil after a success.
func (m *Manager) LastErr() error { return m.lastErr }

// Topics returns the resolved topic set.
func (m *Manager) Topics() Topics { return m.topics }
