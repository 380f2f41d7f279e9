//go:build !unix

package app

import "errors"

// Restart is unsupported here; the supervisor is expected to restart the node
// once it exits.
func Restart() error {
	return errors.New("restart: not supported on this platform")
}
