// Package mock provides an in-memory mock implementation of
// [calendar.Backend] for use in unit tests.
//
// The mock records every method call and allows the test to configure return
// values via exported fields. It is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/lastminutejob75/standardiste/internal/calendar"
)

// Compile-time interface assertion.
var _ calendar.Backend = (*Backend)(nil)

// BookCall records the arguments of a single [Backend.Book] call.
type BookCall struct {
	TenantID string
	Slot     calendar.SlotOffer
	Booking  calendar.Booking
}

// Backend is a mock implementation of [calendar.Backend].
// All exported *Result and *Error fields control return values.
// All exported *Calls fields accumulate invocation records.
type Backend struct {
	mu sync.Mutex

	// FreeSlotsResult is returned by [Backend.FreeSlots].
	FreeSlotsResult []calendar.SlotOffer

	// FreeSlotsError is the error returned by [Backend.FreeSlots].
	FreeSlotsError error

	// BookResult is the event ID returned by [Backend.Book].
	BookResult string

	// BookError is the error returned by [Backend.Book].
	BookError error

	// CancelResult is the slot label returned by [Backend.Cancel].
	CancelResult string

	// CancelError is the error returned by [Backend.Cancel].
	CancelError error

	// FindResult is the slot label returned by [Backend.Find].
	FindResult string

	// FindError is the error returned by [Backend.Find].
	FindError error

	// FreeSlotsCalls records the (tenantID, pref, max) of every call.
	FreeSlotsCalls []struct {
		TenantID string
		Pref     calendar.Preference
		Max      int
	}

	// BookCalls records all Book invocations.
	BookCalls []BookCall

	// CancelCalls records the identifying names passed to Cancel.
	CancelCalls []string

	// FindCalls records the identifying names passed to Find.
	FindCalls []string
}

// FreeSlots implements [calendar.Backend].
func (b *Backend) FreeSlots(_ context.Context, tenantID string, pref calendar.Preference, max int) ([]calendar.SlotOffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FreeSlotsCalls = append(b.FreeSlotsCalls, struct {
		TenantID string
		Pref     calendar.Preference
		Max      int
	}{tenantID, pref, max})
	return b.FreeSlotsResult, b.FreeSlotsError
}

// Book implements [calendar.Backend].
func (b *Backend) Book(_ context.Context, tenantID string, slot calendar.SlotOffer, bk calendar.Booking) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.BookCalls = append(b.BookCalls, BookCall{TenantID: tenantID, Slot: slot, Booking: bk})
	return b.BookResult, b.BookError
}

// Cancel implements [calendar.Backend].
func (b *Backend) Cancel(_ context.Context, _ string, name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CancelCalls = append(b.CancelCalls, name)
	return b.CancelResult, b.CancelError
}

// Find implements [calendar.Backend].
func (b *Backend) Find(_ context.Context, _ string, name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FindCalls = append(b.FindCalls, name)
	return b.FindResult, b.FindError
}
