// Package link keeps the node's publish channel to the broker alive.
//
// A Manager owns the connection state machine (Disconnected, Connecting,
// Connected). It never sleeps: the driving loop passes the elapsed time to
// EnsureConnected, which attempts a connection at most once per cooldown
// window, and calls Tick on every iteration so the transport can deliver
// inbound messages and report drops. Publishing is best effort and is never
// retried here.
package link
