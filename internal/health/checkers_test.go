package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/resilience"
)

type unavailableBackend struct{}

func (unavailableBackend) FreeSlots(context.Context, string, calendar.Preference, int) ([]calendar.SlotOffer, error) {
	return nil, errors.New("backend down")
}
func (unavailableBackend) Book(context.Context, string, calendar.SlotOffer, calendar.Booking) (string, error) {
	return "", errors.New("backend down")
}
func (unavailableBackend) Cancel(context.Context, string, string) (string, error) {
	return "", errors.New("backend down")
}
func (unavailableBackend) Find(context.Context, string, string) (string, error) {
	return "", errors.New("backend down")
}

func TestCalendarBreaker_OpenFails(t *testing.T) {
	g := calendar.NewGuarded(unavailableBackend{}, calendar.WithDeadline(100*time.Millisecond))
	check := CalendarBreaker(g)

	if err := check.Check(context.Background()); err != nil {
		t.Fatalf("closed breaker: unexpected error %v", err)
	}

	// Trip the breaker.
	for i := 0; i < resilience.DefaultThreshold; i++ {
		g.Find(context.Background(), "t1", "jean dupont")
	}
	if g.BreakerState() != resilience.Open {
		t.Fatalf("breaker state = %v, want open", g.BreakerState())
	}
	if err := check.Check(context.Background()); err == nil {
		t.Error("open breaker: want readiness failure")
	}
}

type fixedCounter map[string]int

func (f fixedCounter) Pending(_ context.Context, tenantID string) (int, error) {
	n, ok := f[tenantID]
	if !ok {
		return 0, errors.New("unknown tenant")
	}
	return n, nil
}

func TestFallbackBacklog(t *testing.T) {
	tests := []struct {
		name    string
		counts  fixedCounter
		tenants []string
		limit   int
		wantErr bool
	}{
		{"under limit", fixedCounter{"a": 3, "b": 2}, []string{"a", "b"}, 10, false},
		{"at limit", fixedCounter{"a": 5}, []string{"a"}, 5, false},
		{"over limit", fixedCounter{"a": 30, "b": 25}, []string{"a", "b"}, 50, true},
		{"count error", fixedCounter{}, []string{"missing"}, 50, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			check := FallbackBacklog(tc.counts, tc.tenants, tc.limit)
			err := check.Check(context.Background())
			if (err != nil) != tc.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestPinger(t *testing.T) {
	ok := Pinger("postgres", func(context.Context) error { return nil })
	if ok.Name != "postgres" {
		t.Errorf("name = %q", ok.Name)
	}
	if err := ok.Check(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := Pinger("postgres", func(context.Context) error { return errors.New("dial tcp: refused") })
	err := bad.Check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "refused") {
		t.Errorf("error = %v, want dial failure", err)
	}
}
