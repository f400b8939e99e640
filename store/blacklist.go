package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Blacklist is the Postgres-backed registry of revoked token identifiers.
type Blacklist struct {
	pool *pgxpool.Pool
}

// NewBlacklist creates a [Blacklist] on the given pool.
func NewBlacklist(pool *pgxpool.Pool) *Blacklist {
	return &Blacklist{pool: pool}
}

// Insert records a revoked jti and reports whether this call created the
// row. Idempotent: a duplicate jti is a no-op, not an error, and never
// overwrites the original row. One-time token burning relies on the
// returned flag to pick a single winner under concurrent redemption.
func (b *Blacklist) Insert(ctx context.Context, entry BlacklistEntry) (bool, error) {
	tag, err := b.pool.Exec(ctx, `
		INSERT INTO token_blacklist (jti, subject_id, token_kind, reason, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (jti) DO NOTHING`,
		entry.JTI, entry.SubjectID, entry.TokenKind, entry.Reason, entry.RevokedAt, entry.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("blacklist insert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Contains reports whether the jti has been revoked.
func (b *Blacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var found bool
	err := b.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`, jti,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return found, nil
}

// PurgeExpired deletes entries whose token expiry has passed. An expired
// token fails signature-level validation anyway, so dropping its row can
// never re-admit it.
func (b *Blacklist) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := b.pool.Exec(ctx,
		`DELETE FROM token_blacklist WHERE expires_at < $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("blacklist purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
