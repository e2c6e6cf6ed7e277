package health

import (
	"context"
	"fmt"

	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/resilience"
)

// Pinger adapts any Ping-style dependency (session store, audit database)
// into a [Checker].
func Pinger(name string, ping func(ctx context.Context) error) Checker {
	return Checker{Name: name, Check: ping}
}

// CalendarBreaker reports the calendar circuit breaker. An open breaker means
// new bookings are degrading to the local fallback, which is worth failing
// readiness over: the orchestrator can route new calls elsewhere while the
// backend recovers.
func CalendarBreaker(g *calendar.Guarded) Checker {
	return Checker{
		Name: "calendar",
		Check: func(context.Context) error {
			if st := g.BreakerState(); st == resilience.Open {
				return fmt.Errorf("circuit breaker open, bookings degraded to fallback")
			}
			return nil
		},
	}
}

// PendingCounter is the slice of the fallback store the backlog check needs.
type PendingCounter interface {
	Pending(ctx context.Context, tenantID string) (int, error)
}

// FallbackBacklog fails readiness when unreconciled fallback bookings pile up
// past limit across the given tenants. A growing backlog means the calendar
// backend has been down long enough that someone should reconcile by hand.
func FallbackBacklog(counter PendingCounter, tenants []string, limit int) Checker {
	return Checker{
		Name: "fallback_backlog",
		Check: func(ctx context.Context) error {
			total := 0
			for _, tenant := range tenants {
				n, err := counter.Pending(ctx, tenant)
				if err != nil {
					return fmt.Errorf("tenant %s: %w", tenant, err)
				}
				total += n
			}
			if total > limit {
				return fmt.Errorf("%d unreconciled fallback bookings (limit %d)", total, limit)
			}
			return nil
		},
	}
}
