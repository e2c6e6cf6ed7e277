// Package clock provides the time source and identifier service used by the
// conversation engine. Injecting a [Clock] keeps session-TTL and turn
// timestamps testable without sleeping.
package clock

import (
	"time"

	"github.com/google/uuid"
)

// Clock is the engine's time source.
type Clock interface {
	// Now returns the current wall-clock time in UTC.
	Now() time.Time
}

// System is the production [Clock] backed by [time.Now].
type System struct{}

// Now implements [Clock].
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a test [Clock] that returns a settable instant.
type Fixed struct {
	T time.Time
}

// Now implements [Clock].
func (f *Fixed) Now() time.Time { return f.T }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }

// NewConversationID returns a fresh conversation identifier. Adapters that
// already carry a stable per-conversation key (call ID, chat session ID)
// should pass their own instead.
func NewConversationID() string {
	return uuid.NewString()
}

// NewEventID returns a fresh identifier for audit records.
func NewEventID() string {
	return uuid.NewString()
}
