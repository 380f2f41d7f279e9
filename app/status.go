package app

import (
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/kilianp07/microclaw/core/link"
)

// StatusReporter renders the retained status document with host details.
type StatusReporter struct {
	agent   string
	version string
	started time.Time
	now     func() time.Time
	freeMem func() (uint64, error)
}

func NewStatusReporter(agent, version string) *StatusReporter {
	return &StatusReporter{
		agent:   agent,
		version: version,
		started: time.Now(),
		now:     time.Now,
		freeMem: availableMemory,
	}
}

func availableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// Payload implements link.StatusFunc. Memory is omitted when unavailable.
func (s *StatusReporter) Payload(status string) ([]byte, error) {
	p := link.StatusPayload{
		Status:  status,
		Version: s.version,
		Agent:   s.agent,
		Uptime:  int64(s.now().Sub(s.started) / time.Second),
	}
	if free, err := s.freeMem(); err == nil {
		p.FreeMem = free
	}
	return link.EncodeStatus(p)
}

// Offline is the Last-Will payload. It carries no host details because the
// broker publishes it after the node is gone.
func (s *StatusReporter) Offline() []byte {
	b, _ := link.EncodeStatus(link.StatusPayload{Status: link.StatusOffline, Version: s.version, Agent: s.agent})
	return b
}
