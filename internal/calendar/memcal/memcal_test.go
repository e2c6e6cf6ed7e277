package memcal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/clock"
)

// Monday 2026-03-02 10:00 UTC; slots start the next day.
var monday = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newCal() *Calendar {
	return New(&clock.Fixed{T: monday})
}

func TestFreeSlots_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, _ := newCal().FreeSlots(ctx, "cabinet", calendar.Morning, 3)
	b, _ := newCal().FreeSlots(ctx, "cabinet", calendar.Morning, 3)

	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("lengths = %d, %d, want 3", len(a), len(b))
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || a[i].Label != b[i].Label {
			t.Errorf("slot %d differs between identical clocks: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestFreeSlots_Preference(t *testing.T) {
	ctx := context.Background()
	c := newCal()

	morning, _ := c.FreeSlots(ctx, "cabinet", calendar.Morning, 3)
	for _, s := range morning {
		if h := s.Start.Hour(); h < 9 || h > 11 {
			t.Errorf("morning slot at %dh", h)
		}
	}

	afternoon, _ := c.FreeSlots(ctx, "cabinet", calendar.Afternoon, 3)
	for _, s := range afternoon {
		if h := s.Start.Hour(); h < 14 || h > 16 {
			t.Errorf("afternoon slot at %dh", h)
		}
	}

	// First available day is tomorrow (Tuesday), never today.
	if !morning[0].Start.After(monday) {
		t.Errorf("first slot %v is not after now", morning[0].Start)
	}
	if got := morning[0].Start.Day(); got != 3 {
		t.Errorf("first slot day = %d, want 3 (tomorrow)", got)
	}
}

func TestFreeSlots_SkipsWeekends(t *testing.T) {
	// Friday: tomorrow is Saturday, so the first slots land on Monday.
	friday := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	c := New(&clock.Fixed{T: friday})

	slots, _ := c.FreeSlots(context.Background(), "cabinet", calendar.Morning, 3)
	for _, s := range slots {
		if wd := s.Start.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("slot offered on %s", wd)
		}
	}
}

func TestFreeSlots_Indexes(t *testing.T) {
	slots, _ := newCal().FreeSlots(context.Background(), "cabinet", calendar.Unspecified, 3)
	for i, s := range slots {
		if s.Index != i+1 {
			t.Errorf("slot %d has index %d", i, s.Index)
		}
		if s.Label == "" {
			t.Errorf("slot %d has no label", i)
		}
	}
}

func TestBook_RemovesSlotAndDetectsRace(t *testing.T) {
	ctx := context.Background()
	c := newCal()

	slots, _ := c.FreeSlots(ctx, "cabinet", calendar.Morning, 3)
	id, err := c.Book(ctx, "cabinet", slots[0], calendar.Booking{Name: "Jean Dupont", Contact: "+33612345678"})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if id == "" {
		t.Error("event ID must be non-empty")
	}

	// Same slot again: race detected.
	if _, err := c.Book(ctx, "cabinet", slots[0], calendar.Booking{Name: "Marie Curie"}); !errors.Is(err, calendar.ErrSlotTaken) {
		t.Errorf("double booking error = %v, want ErrSlotTaken", err)
	}

	// The slot no longer shows up as free.
	after, _ := c.FreeSlots(ctx, "cabinet", calendar.Morning, 3)
	for _, s := range after {
		if s.Start.Equal(slots[0].Start) {
			t.Error("booked slot still offered")
		}
	}
}

func TestBook_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	c := newCal()

	slots, _ := c.FreeSlots(ctx, "cabinet", calendar.Morning, 1)
	if _, err := c.Book(ctx, "cabinet", slots[0], calendar.Booking{Name: "Jean Dupont"}); err != nil {
		t.Fatal(err)
	}

	// The same start time is still free for another tenant.
	other, _ := c.FreeSlots(ctx, "garage", calendar.Morning, 1)
	if !other[0].Start.Equal(slots[0].Start) {
		t.Error("tenants must not share availability state")
	}
}

func TestCancelAndFind(t *testing.T) {
	ctx := context.Background()
	c := newCal()

	slots, _ := c.FreeSlots(ctx, "cabinet", calendar.Morning, 1)
	c.Book(ctx, "cabinet", slots[0], calendar.Booking{Name: "Jean Dupont"})

	// Find is case- and accent-insensitive on the name.
	label, err := c.Find(ctx, "cabinet", "jean DUPONT")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if label != slots[0].Label {
		t.Errorf("label = %q, want %q", label, slots[0].Label)
	}

	if _, err := c.Find(ctx, "cabinet", "Marie Curie"); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("unknown name error = %v, want ErrNotFound", err)
	}

	label, err = c.Cancel(ctx, "cabinet", "Jean Dupont")
	if err != nil || label != slots[0].Label {
		t.Fatalf("Cancel = (%q, %v)", label, err)
	}

	// Cancelling frees the slot.
	again, _ := c.FreeSlots(ctx, "cabinet", calendar.Morning, 1)
	if !again[0].Start.Equal(slots[0].Start) {
		t.Error("cancelled slot should be free again")
	}

	if _, err := c.Cancel(ctx, "cabinet", "Jean Dupont"); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("second cancel error = %v, want ErrNotFound", err)
	}
}
