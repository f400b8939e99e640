package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sessions is the Postgres-backed device session registry.
type Sessions struct {
	pool *pgxpool.Pool
}

// NewSessions creates a [Sessions] registry on the given pool.
func NewSessions(pool *pgxpool.Pool) *Sessions {
	return &Sessions{pool: pool}
}

// Create inserts a new session row at login.
func (s *Sessions) Create(ctx context.Context, sess Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_active_session
			(session_id, subject_id, refresh_jti, device_fingerprint, device_label, ip_address, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sess.SessionID, sess.SubjectID, sess.RefreshJTI, sess.DeviceFingerprint,
		sess.DeviceLabel, sess.IPAddress, sess.CreatedAt, sess.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	return nil
}

// AdvanceRotation moves the row keyed by oldJTI onto its successor jti,
// refreshes the last-seen metadata, and returns the updated row.
// ErrNotFound when no row carries oldJTI (the session was already revoked
// underneath the rotation).
func (s *Sessions) AdvanceRotation(ctx context.Context, oldJTI, newJTI, ip string, now time.Time) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		UPDATE token_active_session
		SET refresh_jti = $2, ip_address = $3, last_seen_at = $4
		WHERE refresh_jti = $1
		RETURNING session_id, subject_id, refresh_jti, device_fingerprint, device_label, ip_address, created_at, last_seen_at`,
		oldJTI, newJTI, ip, now,
	).Scan(
		&sess.SessionID, &sess.SubjectID, &sess.RefreshJTI, &sess.DeviceFingerprint,
		&sess.DeviceLabel, &sess.IPAddress, &sess.CreatedAt, &sess.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("session advance: %w", err)
	}
	return sess, nil
}

// GetByID loads one session. ErrNotFound when absent.
func (s *Sessions) GetByID(ctx context.Context, sessionID string) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		SELECT session_id, subject_id, refresh_jti, device_fingerprint, device_label, ip_address, created_at, last_seen_at
		FROM token_active_session
		WHERE session_id = $1`,
		sessionID,
	).Scan(
		&sess.SessionID, &sess.SubjectID, &sess.RefreshJTI, &sess.DeviceFingerprint,
		&sess.DeviceLabel, &sess.IPAddress, &sess.CreatedAt, &sess.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("session lookup: %w", err)
	}
	return sess, nil
}

// ListBySubject returns the subject's sessions, most recently seen first.
func (s *Sessions) ListBySubject(ctx context.Context, subjectID string) ([]Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, subject_id, refresh_jti, device_fingerprint, device_label, ip_address, created_at, last_seen_at
		FROM token_active_session
		WHERE subject_id = $1
		ORDER BY last_seen_at DESC`,
		subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("session list: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.SessionID, &sess.SubjectID, &sess.RefreshJTI, &sess.DeviceFingerprint,
			&sess.DeviceLabel, &sess.IPAddress, &sess.CreatedAt, &sess.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("session scan: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session list: %w", err)
	}
	return out, nil
}

// DeleteByID removes one session. ErrNotFound when absent.
func (s *Sessions) DeleteByID(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM token_active_session WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByRefreshJTI removes the session carrying the given refresh jti.
// Deleting an already-gone session is a no-op.
func (s *Sessions) DeleteByRefreshJTI(ctx context.Context, jti string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM token_active_session WHERE refresh_jti = $1`, jti,
	)
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// DeleteAllForSubject removes every session of the subject and reports how
// many rows were dropped.
func (s *Sessions) DeleteAllForSubject(ctx context.Context, subjectID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM token_active_session WHERE subject_id = $1`, subjectID,
	)
	if err != nil {
		return 0, fmt.Errorf("session delete all: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
