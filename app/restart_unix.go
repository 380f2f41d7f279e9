//go:build unix

package app

import (
	"fmt"
	"os"
	"syscall"
)

// Restart replaces the current process with a fresh instance of the same
// executable and arguments.
func Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
