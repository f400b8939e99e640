package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Rotations is the append-only rotation ledger. The UNIQUE constraint on
// old_refresh_jti makes [Rotations.Record] the single arbiter of rotation
// races: under N concurrent attempts with the same old jti exactly one
// insert lands.
type Rotations struct {
	pool *pgxpool.Pool
}

// NewRotations creates a [Rotations] ledger on the given pool.
func NewRotations(pool *pgxpool.Pool) *Rotations {
	return &Rotations{pool: pool}
}

// Record attempts to append one rotation. Returns false when the old jti
// is already in the ledger — the replay-detection signal. The constraint
// check happens inside Postgres; there is no read-then-write window.
func (r *Rotations) Record(ctx context.Context, rec RotationRecord) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO token_refresh_rotation
			(old_refresh_jti, new_refresh_jti, subject_id, rotated_at, ip_address, device_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (old_refresh_jti) DO NOTHING`,
		rec.OldRefreshJTI, rec.NewRefreshJTI, rec.SubjectID, rec.RotatedAt,
		rec.IPAddress, rec.DeviceFingerprint,
	)
	if err != nil {
		return false, fmt.Errorf("rotation record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
