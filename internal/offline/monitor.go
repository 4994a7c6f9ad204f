package offline

import "sync"

// Monitor tracks the host connectivity signal. It performs no liveness
// probes of its own; the presentation layer reports transitions and the
// monitor fans them out to subscribers, firing only on actual changes.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
}

// NewMonitor starts the monitor in the given state.
func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a connectivity change. Repeated identical states do not
// re-fire subscribers.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
			// Subscriber is behind; it will observe the state on its
			// next read of Online.
		}
	}
}

// Subscribe returns a channel receiving the new state once per transition.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan bool, 4)
	m.subs = append(m.subs, ch)
	return ch
}
