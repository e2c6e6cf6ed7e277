// Package calendar defines the calendar backend contract: listing free
// slots, booking, cancelling, and looking up appointments. The engine only
// ever talks to the [Backend] interface; concrete implementations live in
// the subpackages (memcal for development and tests, sqlitefallback for the
// local degraded-mode store) or outside this repository entirely.
//
// All implementations must honour context deadlines — the engine guards
// every call with a hard timeout and treats expiry as backend-unavailable.
package calendar

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lastminutejob75/standardiste/internal/frtext"
)

// Preference is the caller's time-of-day preference.
type Preference string

const (
	Morning     Preference = "morning"
	Afternoon   Preference = "afternoon"
	Unspecified Preference = "unspecified"
)

// SlotOffer is one concrete appointment proposition. Index is the stable
// 1-based position in the order the slots were presented; Label is the
// human rendering in the session locale ("mardi 3 mars à 9h00").
type SlotOffer struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	Label string    `json:"label"`
}

// Booking carries the qualification data attached to a new appointment.
type Booking struct {
	Name    string
	Motif   string
	Contact string
}

// Sentinel errors returned by [Backend] implementations.
var (
	// ErrSlotTaken means the requested slot was booked by someone else
	// between proposal and confirmation.
	ErrSlotTaken = errors.New("calendar: slot already booked")

	// ErrNotFound means no appointment matches the identifying name.
	ErrNotFound = errors.New("calendar: appointment not found")

	// ErrUnavailable means the backend could not be reached within its
	// deadline. The engine books into the local fallback store when one is
	// configured, and escalates otherwise.
	ErrUnavailable = errors.New("calendar: backend unavailable")
)

// Backend is the calendar collaborator contract (§ external interfaces).
type Backend interface {
	// FreeSlots returns up to max free slots matching pref for the tenant,
	// ordered by start time.
	FreeSlots(ctx context.Context, tenantID string, pref Preference, max int) ([]SlotOffer, error)

	// Book reserves slot for the given booking and returns the backend's
	// event identifier. Returns ErrSlotTaken on a booking race.
	Book(ctx context.Context, tenantID string, slot SlotOffer, b Booking) (string, error)

	// Cancel removes the appointment held under the identifying name and
	// returns its slot label. Returns ErrNotFound when nothing matches.
	Cancel(ctx context.Context, tenantID, name string) (string, error)

	// Find returns the slot label of the appointment held under the
	// identifying name without modifying it.
	Find(ctx context.Context, tenantID, name string) (string, error)
}

// FallbackStore is the local degraded-mode booking store consulted when the
// real backend is unavailable. It is [Backend] minus slot listing: a local
// store cannot know the real availability, only record intent.
type FallbackStore interface {
	Book(ctx context.Context, tenantID string, slot SlotOffer, b Booking) (string, error)
	Cancel(ctx context.Context, tenantID, name string) (string, error)
	Find(ctx context.Context, tenantID, name string) (string, error)
}

// FallbackEventPrefix marks event IDs issued by a [FallbackStore]; the
// engine words the confirmation differently for those.
const FallbackEventPrefix = "local-"

// IsFallbackEvent reports whether eventID was issued by a fallback store.
func IsFallbackEvent(eventID string) bool {
	return strings.HasPrefix(eventID, FallbackEventPrefix)
}

// NameKey normalises an identifying name so "Jean Dupont", "jean dupont"
// and "Jean  Dupont" address the same appointment.
func NameKey(name string) string {
	return strings.Join(frtext.Tokens(name), " ")
}
