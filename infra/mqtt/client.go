package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/google/uuid"

	"github.com/kilianp07/microclaw/core/link"
	"github.com/kilianp07/microclaw/infra/logger"
)

// pahoClient is the subset of paho.Client used by the transport.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

type inbound struct {
	topic   string
	payload []byte
}

// PahoTransport implements link.Transport on top of Eclipse Paho. Automatic
// reconnection is disabled: the link manager decides when to retry. Messages
// received on paho goroutines are queued and handed to the message handler
// from Service.
type PahoTransport struct {
	cli            pahoClient
	qos            byte
	connectTimeout time.Duration
	publishTimeout time.Duration
	inbox          chan inbound
	handler        link.MessageHandler
	logger         logger.Logger
}

// NewPahoTransport builds the client without connecting.
func NewPahoTransport(cfg Config) (*PahoTransport, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := NewClientOptions(cfg)

	log := logger.New("mqtt_client")
	t := &PahoTransport{
		qos:            cfg.QoS,
		connectTimeout: time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond,
		publishTimeout: time.Duration(cfg.PublishTimeoutMS) * time.Millisecond,
		inbox:          make(chan inbound, cfg.InboxSize),
		logger:         log,
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warnf("connection lost: %v", err)
	}
	t.cli = newMQTTClient(opts)
	log.Infof("MQTT broker %s, client id %s", cfg.Broker, opts.ClientID)
	return t, nil
}

// NewClientOptions builds mqtt client options from Config. A random client
// identifier is generated when none is configured.
func NewClientOptions(cfg Config) *paho.ClientOptions {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "microclaw-" + uuid.NewString()[:8]
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(time.Duration(cfg.KeepAliveSeconds) * time.Second)
	opts.SetConnectTimeout(time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts
}

// Connect performs a single blocking connection attempt bounded by the
// connect timeout. Failures are returned as *link.ConnectError carrying the
// CONNACK return code, or packets.ErrNetworkError when none was received.
// A timed out attempt is aborted so it cannot complete behind the manager's
// back.
func (t *PahoTransport) Connect() error {
	if t.cli.IsConnected() {
		return nil
	}
	token := t.cli.Connect()
	if !token.WaitTimeout(t.connectTimeout) {
		t.cli.Disconnect(0)
		return &link.ConnectError{
			Code: int(packets.ErrNetworkError),
			Err:  fmt.Errorf("connect timed out after %s", t.connectTimeout),
		}
	}
	if err := token.Error(); err != nil {
		return &link.ConnectError{Code: returnCode(token, err), Err: err}
	}
	return nil
}

func returnCode(token paho.Token, err error) int {
	if ct, ok := token.(*paho.ConnectToken); ok && ct.ReturnCode() != packets.Accepted {
		return int(ct.ReturnCode())
	}
	for code, known := range packets.ConnErrors {
		if known != nil && errors.Is(err, known) {
			return int(code)
		}
	}
	return int(packets.ErrNetworkError)
}

func (t *PahoTransport) IsConnected() bool { return t.cli.IsConnected() }

// Publish blocks until the broker handshake for the configured QoS completes
// or the publish timeout elapses.
func (t *PahoTransport) Publish(topic string, payload []byte, retained bool) error {
	token := t.cli.Publish(topic, t.qos, retained, payload)
	if !token.WaitTimeout(t.publishTimeout) {
		return fmt.Errorf("publish %s timed out after %s", topic, t.publishTimeout)
	}
	return token.Error()
}

// Subscribe registers the topic; messages are delivered through Service.
func (t *PahoTransport) Subscribe(topic string) error {
	token := t.cli.Subscribe(topic, t.qos, t.enqueue)
	if !token.WaitTimeout(t.publishTimeout) {
		return fmt.Errorf("subscribe %s timed out after %s", topic, t.publishTimeout)
	}
	return token.Error()
}

func (t *PahoTransport) enqueue(_ paho.Client, msg paho.Message) {
	in := inbound{topic: msg.Topic(), payload: append([]byte(nil), msg.Payload()...)}
	select {
	case t.inbox <- in:
	default:
		t.logger.Warnf("inbox full, dropping message on %s", in.topic)
	}
}

func (t *PahoTransport) SetMessageHandler(h link.MessageHandler) { t.handler = h }

// Service delivers the messages queued since the previous call. Paho services
// keep-alives on its own goroutines.
func (t *PahoTransport) Service() {
	for {
		select {
		case in := <-t.inbox:
			if t.handler != nil {
				t.handler(in.topic, in.payload)
			}
		default:
			return
		}
	}
}

// Disconnect gracefully closes the MQTT connection.
func (t *PahoTransport) Disconnect() {
	if t.cli != nil && t.cli.IsConnected() {
		t.cli.Disconnect(250)
	}
}
