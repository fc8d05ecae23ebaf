// Package lifecycle starts and stops the long-lived components of dlcmd in a
// fixed order. Components are started in the order they were added and
// stopped in reverse, mirroring how the host drives plugin lifecycle
// listeners. Components that need background work start it themselves in
// Start.
package lifecycle

import (
	"context"
	"fmt"
)

// Listener is a component with a start/stop lifecycle.
//
// Start must not block on long-running work; it should hand that work to a
// goroutine it owns and return.
type Listener interface {
	Start(ctx context.Context) error
	Stop()
}

// Manager drives a list of listeners.
type Manager struct {
	listeners []Listener
	started   int
}

// Add appends listeners in start order.
func (m *Manager) Add(listeners ...Listener) {
	m.listeners = append(m.listeners, listeners...)
}

// Start starts every listener in order. If one fails, the listeners already
// started are stopped in reverse order and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	for m.started < len(m.listeners) {
		if err := m.listeners[m.started].Start(ctx); err != nil {
			failed := m.started
			m.Stop()
			return fmt.Errorf("starting listener %d: %w", failed, err)
		}
		m.started++
	}
	return nil
}

// Stop stops every started listener in reverse order.
func (m *Manager) Stop() {
	for i := m.started - 1; i >= 0; i-- {
		m.listeners[i].Stop()
	}
	m.started = 0
}
