package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It is the
// default for development and tests; production deployments use the
// Postgres store so sessions survive a process restart.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration

	sweepCancel context.CancelFunc
}

// NewMemStore returns an initialised [MemStore] with the given TTL used by
// the background sweeper. A non-positive ttl falls back to [DefaultTTL].
func NewMemStore(ttl time.Duration) *MemStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func key(tenantID, convID string) string {
	return tenantID + "/" + convID
}

// GetOrCreate implements [Store].
func (m *MemStore) GetOrCreate(_ context.Context, tenantID, convID string, ch Channel, now time.Time) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(tenantID, convID)
	if s, ok := m.sessions[k]; ok {
		return s, false, nil
	}
	s := New(tenantID, convID, ch, now)
	m.sessions[k] = s
	return s, true, nil
}

// Save implements [Store]. The in-memory store hands out live pointers, so
// Save only has to confirm the session is still registered.
func (m *MemStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key(s.TenantID, s.ConvID)] = s
	return nil
}

// Touch implements [Store].
func (m *MemStore) Touch(_ context.Context, tenantID, convID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key(tenantID, convID)]; ok {
		s.LastSeenAt = at
	}
	return nil
}

// Delete implements [Store].
func (m *MemStore) Delete(_ context.Context, tenantID, convID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key(tenantID, convID))
	return nil
}

// Len returns the number of live sessions. Test helper.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper launches a background goroutine that evicts sessions idle
// past twice the TTL. Expiry semantics themselves are handled lazily by the
// engine on the next message; the sweeper only reclaims memory for
// conversations that never come back.
func (m *MemStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	m.sweepCancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case now := <-ticker.C:
				m.sweep(now.UTC())
			}
		}
	}()
}

// StopSweeper cancels the background sweeper, if started.
func (m *MemStore) StopSweeper() {
	if m.sweepCancel != nil {
		m.sweepCancel()
	}
}

func (m *MemStore) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for k, s := range m.sessions {
		if now.Sub(s.LastSeenAt) > 2*m.ttl {
			delete(m.sessions, k)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("session sweeper evicted idle sessions", "count", evicted)
	}
}
