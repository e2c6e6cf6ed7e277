// Package memcal is a deterministic in-memory calendar backend for
// development and tests. Free slots are generated from a fixed weekly grid
// relative to the injected clock, so two runs with the same clock see the
// same availability.
package memcal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/clock"
)

// Compile-time interface assertion.
var _ calendar.Backend = (*Calendar)(nil)

// Slot grid: weekday openings, one appointment per hour.
var (
	morningHours   = []int{9, 10, 11}
	afternoonHours = []int{14, 15, 16}
)

type booking struct {
	eventID string
	slot    calendar.SlotOffer
	info    calendar.Booking
}

// Calendar is the in-memory backend. Bookings are keyed per tenant by the
// normalised identifying name; a slot booked by anyone is removed from the
// free grid for everyone in that tenant.
type Calendar struct {
	clk clock.Clock

	mu       sync.Mutex
	nextID   int
	bookings map[string]map[string]booking // tenant → normalised name → booking
	taken    map[string]map[time.Time]bool // tenant → slot start → booked
}

// New returns an empty calendar driven by clk.
func New(clk clock.Clock) *Calendar {
	return &Calendar{
		clk:      clk,
		bookings: make(map[string]map[string]booking),
		taken:    make(map[string]map[time.Time]bool),
	}
}

// FreeSlots implements [calendar.Backend]. Slots are drawn from the next
// business days starting tomorrow, skipping weekends and already-booked
// starts.
func (c *Calendar) FreeSlots(_ context.Context, tenantID string, pref calendar.Preference, max int) ([]calendar.SlotOffer, error) {
	if max <= 0 {
		max = 3
	}
	hours := gridFor(pref)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	day := now.AddDate(0, 0, 1)
	var out []calendar.SlotOffer
	for d := 0; d < 14 && len(out) < max; d++ {
		date := day.AddDate(0, 0, d)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for _, h := range hours {
			if len(out) >= max {
				break
			}
			start := time.Date(date.Year(), date.Month(), date.Day(), h, 0, 0, 0, now.Location())
			if c.taken[tenantID][start] {
				continue
			}
			out = append(out, calendar.SlotOffer{
				Index: len(out) + 1,
				Start: start,
				Label: calendar.FormatLabel(start),
			})
		}
	}
	return out, nil
}

// Book implements [calendar.Backend].
func (c *Calendar) Book(_ context.Context, tenantID string, slot calendar.SlotOffer, b calendar.Booking) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.taken[tenantID] == nil {
		c.taken[tenantID] = make(map[time.Time]bool)
	}
	if c.taken[tenantID][slot.Start] {
		return "", calendar.ErrSlotTaken
	}
	c.taken[tenantID][slot.Start] = true

	c.nextID++
	id := fmt.Sprintf("mem-%d", c.nextID)
	if c.bookings[tenantID] == nil {
		c.bookings[tenantID] = make(map[string]booking)
	}
	c.bookings[tenantID][calendar.NameKey(b.Name)] = booking{eventID: id, slot: slot, info: b}
	return id, nil
}

// Cancel implements [calendar.Backend].
func (c *Calendar) Cancel(_ context.Context, tenantID, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bk, ok := c.bookings[tenantID][calendar.NameKey(name)]
	if !ok {
		return "", calendar.ErrNotFound
	}
	delete(c.bookings[tenantID], calendar.NameKey(name))
	delete(c.taken[tenantID], bk.slot.Start)
	return bk.slot.Label, nil
}

// Find implements [calendar.Backend].
func (c *Calendar) Find(_ context.Context, tenantID, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bk, ok := c.bookings[tenantID][calendar.NameKey(name)]
	if !ok {
		return "", calendar.ErrNotFound
	}
	return bk.slot.Label, nil
}

func gridFor(pref calendar.Preference) []int {
	switch pref {
	case calendar.Morning:
		return morningHours
	case calendar.Afternoon:
		return afternoonHours
	default:
		return append(append([]int{}, morningHours...), afternoonHours...)
	}
}
