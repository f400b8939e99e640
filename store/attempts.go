package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Attempts is the append-only login attempt log.
type Attempts struct {
	pool *pgxpool.Pool
}

// NewAttempts creates an [Attempts] log on the given pool.
func NewAttempts(pool *pgxpool.Pool) *Attempts {
	return &Attempts{pool: pool}
}

// Record appends one attempt row. Success and failure are both recorded;
// the ephemeral lockout counters live in Redis, not here.
func (a *Attempts) Record(ctx context.Context, att LoginAttempt) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO token_login_attempt
			(email, ip_address, user_agent, success, failure_reason, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		att.Email, att.IPAddress, att.UserAgent, att.Success, att.FailureReason, att.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("attempt record: %w", err)
	}
	return nil
}
