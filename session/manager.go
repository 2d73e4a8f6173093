package session

import (
	"sync"
	"time"
)

type entry struct {
	mu sync.Mutex
	s  *Session
}

// Manager owns all sessions. Each session is guarded by its own lock so users
// never wait on each other.
type Manager struct {
	mu          sync.Mutex
	entries     map[int64]*entry
	flowTimeout time.Duration
	ttl         time.Duration
	now         func() time.Time
}

// NewManager returns a manager that resets flows idle longer than flowTimeout
// and forgets sessions idle longer than ttl. Zero disables either rule.
func NewManager(flowTimeout, ttl time.Duration) *Manager {
	return &Manager{
		entries:     make(map[int64]*entry),
		flowTimeout: flowTimeout,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Acquire locks the user's session, creating it if needed. The caller must
// call release exactly once.
func (m *Manager) Acquire(userID int64) (s *Session, release func()) {
	for {
		m.mu.Lock()
		e, ok := m.entries[userID]
		if !ok {
			e = &entry{s: New(userID)}
			e.s.LastActive = m.now()
			m.entries[userID] = e
		}
		m.mu.Unlock()

		e.mu.Lock()
		m.mu.Lock()
		current := m.entries[userID] == e
		m.mu.Unlock()
		if !current {
			// Evicted between lookup and lock.
			e.mu.Unlock()
			continue
		}
		return e.s, func() {
			e.s.LastActive = m.now()
			e.mu.Unlock()
		}
	}
}

// Len is the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep applies expiry. Sessions currently in use are skipped and looked at
// on the next sweep.
func (m *Manager) Sweep(now time.Time) (reset, evicted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if !e.mu.TryLock() {
			continue
		}
		idle := now.Sub(e.s.LastActive)
		switch {
		case m.ttl > 0 && idle > m.ttl:
			delete(m.entries, id)
			evicted++
		case m.flowTimeout > 0 && e.s.Active() && idle > m.flowTimeout:
			e.s.Reset()
			reset++
		}
		e.mu.Unlock()
	}
	return reset, evicted
}
