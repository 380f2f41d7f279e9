package link

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microclaw/core/events"
	"github.com/kilianp07/microclaw/internal/eventbus"
)

type published struct {
	topic    string
	payload  string
	retained bool
}

type fakeTransport struct {
	failures   []error
	connects   int
	connected  bool
	published  []published
	subscribed []string
	publishErr error
	handler    MessageHandler
	inbox      []published
	serviced   int
	closed     bool
}

func (f *fakeTransport) Connect() error {
	f.connects++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return err
		}
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) IsConnected() bool { return f.connected }

func (f *fakeTransport) Publish(topic string, payload []byte, retained bool) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{topic, string(payload), retained})
	return nil
}

func (f *fakeTransport) Subscribe(topic string) error {
	f.subscribed = append(f.subscribed, topic)
	return nil
}

func (f *fakeTransport) SetMessageHandler(h MessageHandler) { f.handler = h }

func (f *fakeTransport) Service() {
	f.serviced++
	for _, m := range f.inbox {
		f.handler(m.topic, []byte(m.payload))
	}
	f.inbox = nil
}

func (f *fakeTransport) Disconnect() {
	f.connected = false
	f.closed = true
}

func refused(code int) error {
	return &ConnectError{Code: code, Err: errors.New("not authorized")}
}

func testTopics() Topics { return NewTopics("microclaw", "node-1", TopicTemplates{}) }

func TestManagerThirdAttemptSucceeds(t *testing.T) {
	ft := &fakeTransport{failures: []error{refused(5), refused(5)}}
	m := NewManager(ft, testTopics(), "0.1.0")

	var states []State
	ms := time.Millisecond
	for now := time.Duration(0); now <= 10000*ms; now += 100 * ms {
		m.Tick()
		if now%(5000*ms) == 0 {
			m.EnsureConnected(now)
			states = append(states, m.State())
		}
		m.Tick()
		m.EnsureConnected(now)
	}
	states = append(states, m.State())

	assert.Equal(t, []State{Disconnected, Disconnected, Connected, Connected}, states)
	assert.Equal(t, 3, ft.connects)
	assert.Equal(t, 3, m.Attempts())
	assert.Equal(t, 5, m.LastFailureCode())
}

func TestManagerStateSequence(t *testing.T) {
	ft := &fakeTransport{failures: []error{refused(4), refused(4)}}
	m := NewManager(ft, testTopics(), "0.1.0")
	s := time.Second

	seq := []State{m.State()}
	for _, now := range []time.Duration{0, 5 * s, 10 * s} {
		for i := 0; i < 20; i++ {
			m.Tick()
		}
		m.EnsureConnected(now)
		seq = append(seq, m.State())
	}

	assert.Equal(t, []State{Disconnected, Disconnected, Disconnected, Connected}, seq)
	assert.Equal(t, 3, ft.connects)
}

func TestManagerCooldownNeverViolated(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for run := 0; run < 100; run++ {
		ft := &fakeTransport{}
		for i := 0; i < 50; i++ {
			if rng.Intn(3) > 0 {
				ft.failures = append(ft.failures, refused(rng.Intn(6)))
			} else {
				ft.failures = append(ft.failures, nil)
			}
		}
		m := NewManager(ft, testTopics(), "0.1.0", WithoutStatus())

		var attemptTimes []time.Duration
		now := time.Duration(0)
		for step := 0; step < 400; step++ {
			now += time.Duration(rng.Intn(1500)) * time.Millisecond
			if rng.Intn(10) == 0 {
				ft.connected = false
			}
			m.Tick()
			before := ft.connects
			m.EnsureConnected(now)
			if ft.connects > before {
				attemptTimes = append(attemptTimes, now)
			}
		}
		for i := 1; i < len(attemptTimes); i++ {
			require.GreaterOrEqual(t, attemptTimes[i]-attemptTimes[i-1], DefaultCooldown, "run %d", run)
		}
		require.Equal(t, len(attemptTimes), m.Attempts())
	}
}

func TestManagerCooldownBoundary(t *testing.T) {
	ft := &fakeTransport{failures: []error{refused(3), refused(3)}}
	m := NewManager(ft, testTopics(), "0.1.0", WithCooldown(time.Second))

	m.EnsureConnected(0)
	m.EnsureConnected(999 * time.Millisecond)
	assert.Equal(t, 1, ft.connects)
	m.EnsureConnected(time.Second)
	assert.Equal(t, 2, ft.connects)
}

func TestPublishWhileDisconnected(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, testTopics(), "0.1.0")

	assert.False(t, m.Publish("microclaw/node-1/sensors", []byte(`{}`)))
	assert.False(t, m.PublishRetained("microclaw/node-1/status", []byte(`{}`)))
	assert.Empty(t, ft.published)
	assert.Zero(t, ft.connects)
}

func TestConnectSubscribesAndAnnounces(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, testTopics(), "1.2.3")

	require.True(t, m.EnsureConnected(0))
	assert.Equal(t, []string{"microclaw/node-1/commands"}, ft.subscribed)
	require.Len(t, ft.published, 1)
	assert.Equal(t, "microclaw/node-1/status", ft.published[0].topic)
	assert.True(t, ft.published[0].retained)
	assert.JSONEq(t, `{"status":"online","version":"1.2.3"}`, ft.published[0].payload)

	assert.True(t, m.Publish("microclaw/node-1/sensors", []byte("x")))
	assert.False(t, ft.published[1].retained)
}

func TestReconnectAnnouncesReconnected(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, testTopics(), "0.1.0", WithCooldown(time.Second))

	require.True(t, m.EnsureConnected(0))
	ft.connected = false
	m.Tick()
	assert.Equal(t, Disconnected, m.State())

	assert.False(t, m.EnsureConnected(500*time.Millisecond), "cooldown counts from the last attempt")
	require.True(t, m.EnsureConnected(time.Second))
	last := ft.published[len(ft.published)-1]
	assert.JSONEq(t, `{"status":"reconnected","version":"0.1.0"}`, last.payload)
	assert.Equal(t, 2, m.Sessions())
	assert.Len(t, ft.subscribed, 2)
}

func TestTickDeliversInbound(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, testTopics(), "0.1.0")
	var got []string
	m.OnMessage(func(topic string, payload []byte) { got = append(got, topic+"="+string(payload)) })

	ft.inbox = []published{{topic: "microclaw/node-1/commands", payload: "status"}}
	m.Tick()
	assert.Empty(t, got, "no servicing while disconnected")

	m.EnsureConnected(0)
	m.Tick()
	assert.Equal(t, []string{"microclaw/node-1/commands=status"}, got)
	assert.Equal(t, 1, ft.serviced)
}

func TestPublishFailureIsReported(t *testing.T) {
	ft := &fakeTransport{}
	bus := eventbus.New()
	sub := bus.Subscribe()
	m := NewManager(ft, testTopics(), "0.1.0", WithoutStatus(), WithEventBus(bus))
	m.EnsureConnected(0)
	ft.publishErr = errors.New("timeout")

	assert.False(t, m.Publish("t", []byte("x")))
	assert.Equal(t, Connected, m.State(), "publish failures do not change the state")

	var pub events.PublishEvent
	for e := range sub {
		if p, ok := e.(events.PublishEvent); ok {
			pub = p
			break
		}
	}
	assert.False(t, pub.OK)
	assert.Equal(t, "t", pub.Topic)
}

func TestConnectionEvents(t *testing.T) {
	ft := &fakeTransport{failures: []error{refused(5)}}
	bus := eventbus.New()
	sub := bus.Subscribe()
	m := NewManager(ft, testTopics(), "0.1.0", WithoutStatus(), WithEventBus(bus), WithCooldown(time.Second))

	m.EnsureConnected(0)
	m.EnsureConnected(time.Second)
	m.Close()
	bus.Close()

	var got []string
	var codes []int
	for e := range sub {
		ce := e.(events.ConnectionEvent)
		got = append(got, ce.State)
		codes = append(codes, ce.Code)
	}
	assert.Equal(t, []string{"connecting", "disconnected", "connecting", "connected", "disconnected"}, got)
	assert.Equal(t, []int{NoCode, 5, NoCode, NoCode, NoCode}, codes)
	assert.True(t, ft.closed)
}

func TestConnectErrorUnwrap(t *testing.T) {
	err := refused(2)
	assert.ErrorIs(t, err, ErrConnectionRefused)
	assert.Equal(t, 2, codeOf(err))
	assert.Equal(t, NoCode, codeOf(errors.New("dial tcp: refused")))
}

func TestConnectErrorNetworkFailureIsNotRefusal(t *testing.T) {
	for _, code := range []int{0, CodeNetworkError, 0xFF} {
		err := error(&ConnectError{Code: code, Err: errors.New("i/o timeout")})
		assert.ErrorIs(t, err, ErrConnectFailed, "rc=%d", code)
		assert.NotErrorIs(t, err, ErrConnectionRefused, "rc=%d", code)
		assert.Contains(t, err.Error(), "connect failed")
	}
	err := error(&ConnectError{Code: 0x87, Err: errors.New("not authorized")})
	assert.ErrorIs(t, err, ErrConnectionRefused)
	assert.NotErrorIs(t, err, ErrConnectFailed)
}

func TestTopics(t *testing.T) {
	tp := NewTopics("home", "kitchen", TopicTemplates{Commands: "cmd/{node}"})
	assert.Equal(t, "home/kitchen/status", tp.Status)
	assert.Equal(t, "home/kitchen/sensors", tp.Sensors)
	assert.Equal(t, "cmd/kitchen", tp.Commands)
	assert.Equal(t, "home/kitchen/sensors/humidity", tp.Channel("humidity"))
}

func TestEncodeChannel(t *testing.T) {
	b, err := EncodeChannel(25, UnitCelsius)
	require.NoError(t, err)
	assert.Equal(t, `{"value":25.00,"unit":"C"}`, string(b))

	b, err = EncodeChannel(55.456, UnitPercent)
	require.NoError(t, err)
	assert.Equal(t, `{"value":55.46,"unit":"%"}`, string(b))
}
