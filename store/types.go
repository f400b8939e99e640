package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// BlacklistEntry records one revoked token identifier. Rows are created
// once, never mutated, and purged after ExpiresAt passes.
type BlacklistEntry struct {
	JTI       string
	SubjectID string
	TokenKind string
	Reason    string
	RevokedAt time.Time
	ExpiresAt time.Time
}

// Session is one device login lineage. It survives refresh rotation (the
// RefreshJTI column advances in place) and dies on logout or revocation.
type Session struct {
	SessionID         string
	SubjectID         string
	RefreshJTI        string
	DeviceFingerprint string
	DeviceLabel       string
	IPAddress         string
	CreatedAt         time.Time
	LastSeenAt        time.Time
}

// RotationRecord links a consumed refresh jti to its successor.
// Append-only; OldRefreshJTI carries the UNIQUE constraint.
type RotationRecord struct {
	OldRefreshJTI     string
	NewRefreshJTI     string
	SubjectID         string
	RotatedAt         time.Time
	IPAddress         string
	DeviceFingerprint string
}

// LoginAttempt is one row of the append-only login audit trail.
type LoginAttempt struct {
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	AttemptedAt   time.Time
}
