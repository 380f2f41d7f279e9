// Package events defines the node events emitted on the event bus.
//
// Available event types:
//   - ReadingEvent: outcome of one sensor acquisition (after retries)
//   - ConnectionEvent: broker connection state transition or failed attempt
//   - PublishEvent: result of a single publish
//   - CommandEvent: inbound command received on the command topic
package events
