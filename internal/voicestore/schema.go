// Package voicestore is the voice bundle loader, backed by PostgreSQL:
// a voice_bundles table holds each bundle's name, phoneset kind, and a
// jsonb blob of its dictionary/addendum/G2P rule tables, loaded once at
// startup into an in-memory [voice.Voice].
package voicestore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlVoiceBundles = `
CREATE TABLE IF NOT EXISTS voice_bundles (
    name          TEXT         PRIMARY KEY,
    phoneset_kind TEXT         NOT NULL,
    bundle        JSONB        NOT NULL,
    updated_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// Migrate ensures the voice_bundles table exists.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlVoiceBundles); err != nil {
		return fmt.Errorf("voicestore: migrate: %w", err)
	}
	return nil
}
