// Package postgres provides the PostgreSQL-backed audit sink. It shares the
// session store's connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lastminutejob75/standardiste/internal/audit"
)

// Compile-time interface assertion.
var _ audit.Sink = (*Sink)(nil)

const ddlAuditEvents = `
CREATE TABLE IF NOT EXISTS audit_events (
    seq            BIGSERIAL    PRIMARY KEY,
    tenant_id      TEXT         NOT NULL,
    conv_id        TEXT         NOT NULL,
    event_name     TEXT         NOT NULL,
    previous_state TEXT         NOT NULL,
    reason         TEXT         NOT NULL DEFAULT '',
    counters       JSONB        NOT NULL DEFAULT '{}',
    user_message   TEXT         NOT NULL DEFAULT '',
    ts             TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_conv
    ON audit_events (tenant_id, conv_id, seq);

CREATE INDEX IF NOT EXISTS idx_audit_events_name
    ON audit_events (event_name);
`

// Migrate ensures the audit table exists. Idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlAuditEvents); err != nil {
		return fmt.Errorf("audit postgres migrate: %w", err)
	}
	return nil
}

// Sink appends audit records to PostgreSQL.
type Sink struct {
	pool *pgxpool.Pool
}

// NewSink wraps an existing pool and runs [Migrate].
func NewSink(ctx context.Context, pool *pgxpool.Pool) (*Sink, error) {
	if err := Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return &Sink{pool: pool}, nil
}

// Append implements [audit.Sink].
func (s *Sink) Append(ctx context.Context, rec audit.Record) error {
	counters, err := json.Marshal(rec.Counters)
	if err != nil {
		return fmt.Errorf("audit postgres: encode counters: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_events
			(tenant_id, conv_id, event_name, previous_state, reason, counters, user_message, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.TenantID, rec.ConvID, rec.EventName, string(rec.PreviousState),
		rec.Reason, counters, rec.UserMessage, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("audit postgres: append: %w", err)
	}
	return nil
}
