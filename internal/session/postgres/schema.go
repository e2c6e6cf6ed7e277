package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ─────────────────────────────────────────────────────────────────────────────
// DDL — sessions, event journal, state checkpoints
// ─────────────────────────────────────────────────────────────────────────────

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    tenant_id    TEXT         NOT NULL,
    conv_id      TEXT         NOT NULL,
    state        JSONB        NOT NULL,
    last_seen_at TIMESTAMPTZ  NOT NULL,
    created_at   TIMESTAMPTZ  NOT NULL,
    PRIMARY KEY (tenant_id, conv_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_last_seen
    ON sessions (last_seen_at);
`

const ddlJournal = `
CREATE TABLE IF NOT EXISTS journal (
    seq        BIGSERIAL    PRIMARY KEY,
    tenant_id  TEXT         NOT NULL,
    conv_id    TEXT         NOT NULL,
    role       TEXT         NOT NULL,
    text       TEXT         NOT NULL,
    ts         TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_journal_conv
    ON journal (tenant_id, conv_id, seq);
`

const ddlCheckpoints = `
CREATE TABLE IF NOT EXISTS checkpoints (
    seq        BIGSERIAL    PRIMARY KEY,
    tenant_id  TEXT         NOT NULL,
    conv_id    TEXT         NOT NULL,
    state_json JSONB        NOT NULL,
    ts         TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_conv
    ON checkpoints (tenant_id, conv_id, seq DESC);
`

// Migrate creates or ensures all required tables exist. Idempotent and safe
// to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{ddlSessions, ddlJournal, ddlCheckpoints}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("session postgres migrate: %w", err)
		}
	}
	return nil
}
