// Package sqlitefallback is the local degraded-mode booking store. When the
// tenant's real calendar backend is unreachable, confirmed bookings are
// written here so the caller still gets an answer; staff reconcile the
// pending rows once the backend comes back.
package sqlitefallback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lastminutejob75/standardiste/internal/calendar"
)

// Compile-time assertion that Store satisfies the fallback contract.
var _ calendar.FallbackStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS fallback_bookings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id   TEXT NOT NULL,
	name_key    TEXT NOT NULL,
	name        TEXT NOT NULL,
	motif       TEXT NOT NULL DEFAULT '',
	contact     TEXT NOT NULL DEFAULT '',
	slot_start  TEXT NOT NULL,
	slot_label  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	reconciled  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_fallback_tenant_name
	ON fallback_bookings (tenant_id, name_key) WHERE reconciled = 0;
`

// Store persists fallback bookings in a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the SQLite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitefallback: open %s: %w", path, err)
	}
	// SQLite handles one writer at a time; serialise at the pool level.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitefallback: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Book records a booking locally and returns a "local-" prefixed event ID so
// callers can tell a degraded-mode confirmation from a real one.
func (s *Store) Book(ctx context.Context, tenantID string, slot calendar.SlotOffer, b calendar.Booking) (string, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fallback_bookings
			(tenant_id, name_key, name, motif, contact, slot_start, slot_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tenantID, calendar.NameKey(b.Name), b.Name, b.Motif, b.Contact,
		slot.Start.Format(time.RFC3339), slot.Label, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("sqlitefallback: insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("sqlitefallback: last insert id: %w", err)
	}
	return fmt.Sprintf("local-%d", id), nil
}

// Cancel marks the most recent unreconciled booking under name as reconciled
// and returns its slot label.
func (s *Store) Cancel(ctx context.Context, tenantID, name string) (string, error) {
	var (
		id    int64
		label string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slot_label FROM fallback_bookings
		WHERE tenant_id = ? AND name_key = ? AND reconciled = 0
		ORDER BY id DESC LIMIT 1`,
		tenantID, calendar.NameKey(name),
	).Scan(&id, &label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", calendar.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlitefallback: lookup booking: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE fallback_bookings SET reconciled = 1 WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("sqlitefallback: cancel booking: %w", err)
	}
	return label, nil
}

// Find returns the slot label of the most recent unreconciled booking under
// name.
func (s *Store) Find(ctx context.Context, tenantID, name string) (string, error) {
	var label string
	err := s.db.QueryRowContext(ctx, `
		SELECT slot_label FROM fallback_bookings
		WHERE tenant_id = ? AND name_key = ? AND reconciled = 0
		ORDER BY id DESC LIMIT 1`,
		tenantID, calendar.NameKey(name),
	).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", calendar.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlitefallback: find booking: %w", err)
	}
	return label, nil
}

// Pending returns the number of unreconciled rows for a tenant. Exposed for
// the health endpoint and tests.
func (s *Store) Pending(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fallback_bookings
		WHERE tenant_id = ? AND reconciled = 0`, tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlitefallback: count pending: %w", err)
	}
	return n, nil
}
