package audit

import (
	"context"
	"sync"
)

// Compile-time interface assertion.
var _ Sink = (*MemSink)(nil)

// MemSink keeps the last capacity records in a ring. It backs development
// setups and tests; production uses the Postgres sink.
type MemSink struct {
	mu      sync.Mutex
	records []Record
	next    int
	full    bool
}

// NewMemSink returns a ring sink holding up to capacity records (default
// 1024 when non-positive).
func NewMemSink(capacity int) *MemSink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemSink{records: make([]Record, capacity)}
}

// Append implements [Sink].
func (m *MemSink) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[m.next] = rec
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Records returns the stored records in insertion order.
func (m *MemSink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.full {
		out := make([]Record, m.next)
		copy(out, m.records[:m.next])
		return out
	}
	out := make([]Record, 0, len(m.records))
	out = append(out, m.records[m.next:]...)
	out = append(out, m.records[:m.next]...)
	return out
}
