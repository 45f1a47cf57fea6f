package vault

import "credchain/internal/chain"

// Subscribe registers a watcher for newly appended blocks. The channel
// is buffered; a watcher that falls behind misses blocks rather than
// stalling mining. The returned cancel is idempotent and closes the
// channel.
func (m *Manager) Subscribe() (<-chan chain.Block, func()) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	watchID := m.nextWatch
	m.nextWatch++
	ch := make(chan chain.Block, 16)
	m.watchers[watchID] = ch

	cancel := func() {
		m.watchMu.Lock()
		defer m.watchMu.Unlock()
		if c, ok := m.watchers[watchID]; ok {
			delete(m.watchers, watchID)
			close(c)
		}
	}
	return ch, cancel
}

func (m *Manager) notifyWatchers(b chain.Block) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for _, ch := range m.watchers {
		select {
		case ch <- b:
		default:
		}
	}
}
