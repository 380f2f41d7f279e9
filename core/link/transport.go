package link

// MessageHandler receives inbound messages. It is always invoked from Tick,
// on the goroutine that drives the manager.
type MessageHandler func(topic string, payload []byte)

// Transport is the publish channel collaborator, typically an MQTT client.
type Transport interface {
	// Connect performs one connection attempt. Refusals should be reported
	// as *ConnectError.
	Connect() error
	IsConnected() bool
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string) error
	SetMessageHandler(h MessageHandler)
	// Service delivers queued inbound messages and services keep-alives.
	Service()
	Disconnect()
}
