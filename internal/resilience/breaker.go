// Package resilience provides the circuit breaker guarding calendar backend
// calls. A classic three-state breaker (closed → open → half-open): repeated
// failures trip it open so the engine stops burning its latency budget on a
// dead backend and books into the local fallback store instead; after a
// cooldown a single probe call decides whether to close again.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Execute] when the breaker is open and the
// cooldown has not yet elapsed.
var ErrOpen = errors.New("resilience: breaker is open")

// Defaults used by [NewBreaker] for non-positive arguments.
const (
	DefaultThreshold = 3
	DefaultCooldown  = 30 * time.Second
)

// State represents the current operating mode of a [Breaker].
type State int

const (
	// Closed is the normal operating state. All calls are forwarded.
	Closed State = iota

	// Open means the breaker has tripped. Calls fail immediately with
	// [ErrOpen] until the cooldown elapses.
	Open

	// HalfOpen is the probe state after cooldown. One call is let through;
	// success closes the breaker, failure re-opens it.
	HalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker implements the three-state circuit breaker pattern.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// NewBreaker creates a [Breaker] that opens after threshold consecutive
// failures and stays open for cooldown. Non-positive arguments fall back to
// 3 failures and 30 seconds.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown}
}

// Execute runs fn if the breaker allows it. In the open state it returns
// [ErrOpen] without calling fn. In the half-open state exactly one probe is
// permitted at a time.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case Open:
		if time.Since(b.lastFailure) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = HalfOpen
		slog.Info("breaker transitioning to half-open", "name", b.name)
		fallthrough
	case HalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	probe := b.state == HalfOpen
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}

	if err != nil {
		b.lastFailure = time.Now()
		if probe {
			b.state = Open
			b.failures = b.threshold
			slog.Warn("breaker re-opened from half-open", "name", b.name)
			return err
		}
		b.failures++
		if b.failures >= b.threshold && b.state == Closed {
			b.state = Open
			slog.Warn("breaker opened", "name", b.name, "consecutive_failures", b.failures)
		}
		return err
	}

	b.state = Closed
	b.failures = 0
	return nil
}

// State returns the breaker's current [State]. An open breaker whose
// cooldown has elapsed reports [HalfOpen]; the actual transition happens on
// the next [Breaker.Execute].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && time.Since(b.lastFailure) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Reset forces the breaker back to [Closed], clearing failure counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probing = false
}
