package session

import (
	"context"
	"time"
)

// Store is the session persistence contract. Implementations must be safe
// for concurrent use; the engine additionally serialises all access to a
// given conversation, so a Store never sees two in-flight operations for
// the same (tenant, conversation) pair.
type Store interface {
	// GetOrCreate loads the session for (tenantID, convID), creating a
	// fresh one in the START state on miss. created reports whether a new
	// session was made.
	GetOrCreate(ctx context.Context, tenantID, convID string, ch Channel, now time.Time) (s *Session, created bool, err error)

	// Save persists the session atomically.
	Save(ctx context.Context, s *Session) error

	// Touch updates the session's last-seen timestamp without rewriting
	// the full record.
	Touch(ctx context.Context, tenantID, convID string, at time.Time) error

	// Delete removes the session. Used by the TTL sweeper and by tests.
	Delete(ctx context.Context, tenantID, convID string) error
}

// Journal is the optional append-only turn log. Stores that implement it
// get every user and agent turn recorded for offline replay; the engine
// treats journal failures as best-effort.
type Journal interface {
	AppendJournal(ctx context.Context, tenantID, convID string, role Role, text string, at time.Time) error
}
