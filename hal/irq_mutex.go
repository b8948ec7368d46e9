//go:build !(tinygo && baremetal)

package hal

import "sync"

// mutexIRQ stands in for interrupt masking where goroutines run on real
// threads. It is not reentrant.
type mutexIRQ struct {
	mu sync.Mutex
}

func (m *mutexIRQ) Disable() uintptr {
	m.mu.Lock()
	return 0
}

func (m *mutexIRQ) Restore(uintptr) {
	m.mu.Unlock()
}
