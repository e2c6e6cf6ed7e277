package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lastminutejob75/standardiste/internal/resilience"
)

// DefaultDeadline is the hard per-call budget for backend operations. The
// engine's overall latency contract leaves no room for a slower backend.
const DefaultDeadline = 2 * time.Second

// Compile-time interface assertion.
var _ Backend = (*Guarded)(nil)

// Guarded wraps a real backend with a per-call deadline, a circuit breaker,
// and an optional local fallback store. Timeouts and breaker rejections
// surface as [ErrUnavailable]; Book additionally degrades into the fallback
// store when one is configured, so a caller mid-confirmation still gets a
// booking recorded.
type Guarded struct {
	primary  Backend
	fallback FallbackStore
	breaker  *resilience.Breaker
	deadline time.Duration
}

// GuardedOption customises a [Guarded].
type GuardedOption func(*Guarded)

// WithFallback configures the local degraded-mode store.
func WithFallback(fs FallbackStore) GuardedOption {
	return func(g *Guarded) { g.fallback = fs }
}

// WithDeadline overrides [DefaultDeadline].
func WithDeadline(d time.Duration) GuardedOption {
	return func(g *Guarded) {
		if d > 0 {
			g.deadline = d
		}
	}
}

// NewGuarded wraps primary.
func NewGuarded(primary Backend, opts ...GuardedOption) *Guarded {
	g := &Guarded{
		primary:  primary,
		breaker:  resilience.NewBreaker("calendar", 3, 30*time.Second),
		deadline: DefaultDeadline,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FreeSlots implements [Backend].
func (g *Guarded) FreeSlots(ctx context.Context, tenantID string, pref Preference, max int) ([]SlotOffer, error) {
	var slots []SlotOffer
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		slots, err = g.primary.FreeSlots(ctx, tenantID, pref, max)
		return err
	})
	return slots, err
}

// Book implements [Backend]. On [ErrUnavailable] with a fallback store
// configured, the booking is written locally and a fallback event ID is
// returned.
func (g *Guarded) Book(ctx context.Context, tenantID string, slot SlotOffer, b Booking) (string, error) {
	var id string
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		id, err = g.primary.Book(ctx, tenantID, slot, b)
		return err
	})
	if errors.Is(err, ErrUnavailable) && g.fallback != nil {
		slog.Warn("calendar backend unavailable, booking into local fallback",
			"tenant_id", tenantID, "slot", slot.Label)
		return g.fallback.Book(ctx, tenantID, slot, b)
	}
	return id, err
}

// Cancel implements [Backend]. A not-found on the primary is retried against
// the fallback store, which may hold bookings taken while the backend was
// down.
func (g *Guarded) Cancel(ctx context.Context, tenantID, name string) (string, error) {
	var label string
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		label, err = g.primary.Cancel(ctx, tenantID, name)
		return err
	})
	if g.fallback != nil && (errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable)) {
		if l, ferr := g.fallback.Cancel(ctx, tenantID, name); ferr == nil {
			return l, nil
		}
	}
	return label, err
}

// Find implements [Backend], with the same fallback consultation as Cancel.
func (g *Guarded) Find(ctx context.Context, tenantID, name string) (string, error) {
	var label string
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		label, err = g.primary.Find(ctx, tenantID, name)
		return err
	})
	if g.fallback != nil && (errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable)) {
		if l, ferr := g.fallback.Find(ctx, tenantID, name); ferr == nil {
			return l, nil
		}
	}
	return label, err
}

// BreakerState exposes the breaker for the health endpoint.
func (g *Guarded) BreakerState() resilience.State {
	return g.breaker.State()
}

// call runs fn under the deadline and the breaker. Domain errors (slot
// taken, not found) pass through without tripping the breaker; everything
// else, including timeouts and breaker rejections, folds into
// [ErrUnavailable].
func (g *Guarded) call(ctx context.Context, fn func(context.Context) error) error {
	var domainErr error
	err := g.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.deadline)
		defer cancel()
		err := fn(callCtx)
		if errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrNotFound) {
			domainErr = err
			return nil // not a backend health problem
		}
		return err
	})
	switch {
	case errors.Is(err, resilience.ErrOpen), errors.Is(err, context.DeadlineExceeded):
		return ErrUnavailable
	case err != nil:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return domainErr
}
