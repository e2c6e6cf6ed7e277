// Package postgres provides the PostgreSQL-backed session store. Sessions
// are persisted as one JSONB document per (tenant, conversation) and survive
// process restarts; an append-only journal and periodic state checkpoints
// support crash recovery and offline replay.
//
// All operations are safe for concurrent use; a single [pgxpool.Pool] is
// shared across them.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lastminutejob75/standardiste/internal/session"
)

// Compile-time interface checks.
var (
	_ session.Store   = (*Store)(nil)
	_ session.Journal = (*Store)(nil)
)

// Store is the PostgreSQL session store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("session postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("session postgres: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("session postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Pool exposes the underlying connection pool so sibling stores (the audit
// sink) can share it.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases all connections held by the pool.
func (s *Store) Close() { s.pool.Close() }

// GetOrCreate implements [session.Store].
func (s *Store) GetOrCreate(ctx context.Context, tenantID, convID string, ch session.Channel, now time.Time) (*session.Session, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM sessions WHERE tenant_id = $1 AND conv_id = $2`,
		tenantID, convID,
	).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		sess := session.New(tenantID, convID, ch, now)
		if err := s.Save(ctx, sess); err != nil {
			return nil, false, err
		}
		return sess, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("session postgres: load %s/%s: %w", tenantID, convID, err)
	}

	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, false, fmt.Errorf("session postgres: decode %s/%s: %w", tenantID, convID, err)
	}
	return &sess, false, nil
}

// Save implements [session.Store]. The full session document is upserted and
// a checkpoint row appended in one transaction.
func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session postgres: encode %s/%s: %w", sess.TenantID, sess.ConvID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("session postgres: begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO sessions (tenant_id, conv_id, state, last_seen_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, conv_id)
		DO UPDATE SET state = EXCLUDED.state, last_seen_at = EXCLUDED.last_seen_at`,
		sess.TenantID, sess.ConvID, raw, sess.LastSeenAt, sess.CreatedAt,
	); err != nil {
		return fmt.Errorf("session postgres: upsert %s/%s: %w", sess.TenantID, sess.ConvID, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO checkpoints (tenant_id, conv_id, state_json) VALUES ($1, $2, $3)`,
		sess.TenantID, sess.ConvID, raw,
	); err != nil {
		return fmt.Errorf("session postgres: checkpoint %s/%s: %w", sess.TenantID, sess.ConvID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("session postgres: commit save: %w", err)
	}
	return nil
}

// Touch implements [session.Store].
func (s *Store) Touch(ctx context.Context, tenantID, convID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET last_seen_at = $3 WHERE tenant_id = $1 AND conv_id = $2`,
		tenantID, convID, at,
	)
	if err != nil {
		return fmt.Errorf("session postgres: touch %s/%s: %w", tenantID, convID, err)
	}
	return nil
}

// Delete implements [session.Store]. Journal and checkpoint rows are kept;
// they are the offline record.
func (s *Store) Delete(ctx context.Context, tenantID, convID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE tenant_id = $1 AND conv_id = $2`,
		tenantID, convID,
	)
	if err != nil {
		return fmt.Errorf("session postgres: delete %s/%s: %w", tenantID, convID, err)
	}
	return nil
}

// AppendJournal implements [session.Journal].
func (s *Store) AppendJournal(ctx context.Context, tenantID, convID string, role session.Role, text string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO journal (tenant_id, conv_id, role, text, ts) VALUES ($1, $2, $3, $4, $5)`,
		tenantID, convID, string(role), text, at,
	)
	if err != nil {
		return fmt.Errorf("session postgres: journal append: %w", err)
	}
	return nil
}

// Ping reports database reachability for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
