package tokenguard

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenguard/store"
)

// AccountStatus represents the lifecycle state of a principal's account.
// Transitions: pending → approved|rejected, approved → active (on first
// login, owned by the identity store), active ⇄ suspended.
type AccountStatus uint8

const (
	// AccountPending awaits admin approval and may not log in.
	AccountPending AccountStatus = iota
	// AccountApproved may log in; the identity store flips it to active
	// after the first successful login.
	AccountApproved
	// AccountActive is the normal logged-in-before state.
	AccountActive
	// AccountRejected was denied approval and may never log in.
	AccountRejected
	// AccountSuspended is admin-disabled until further notice.
	AccountSuspended
)

// Principal is the identity record the engine operates on. It is owned by
// the external identity store; the engine reads it and, on security
// incidents, asks the store to advance PasswordEpoch.
type Principal struct {
	ID            string
	Email         string
	Role          string
	Permissions   []string
	TenantID      string
	BranchID      string
	PasswordEpoch int
	Status        AccountStatus
}

// HasCapability reports whether the principal carries the named permission.
// This is the single authorization primitive the engine offers; policy
// beyond set membership belongs to the host application.
func (p *Principal) HasCapability(capability string) bool {
	if p == nil {
		return false
	}
	for _, perm := range p.Permissions {
		if perm == capability {
			return true
		}
	}
	return false
}

// TokenPair is returned by [Engine.Issue] and [Engine.Rotate].
type TokenPair struct {
	Access    string
	Refresh   string
	SessionID string
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	TokenPair
	Principal Principal
}

// SessionInfo is one row of [Engine.Sessions]: a device login lineage as
// shown to the end user.
type SessionInfo struct {
	SessionID   string
	DeviceLabel string
	IPAddress   string
	CreatedAt   time.Time
	LastSeenAt  time.Time
	IsCurrent   bool
}

// BlacklistEntry records one revoked token identifier.
type BlacklistEntry = store.BlacklistEntry

// Session is one device login lineage.
type Session = store.Session

// RotationRecord links a consumed refresh jti to its successor.
type RotationRecord = store.RotationRecord

// LoginAttempt is one row of the login audit trail.
type LoginAttempt = store.LoginAttempt

// PrincipalStore is implemented by the host's identity store. GetByID must
// return the current record on every call; the engine never caches it,
// since revocation-by-epoch must take effect immediately.
type PrincipalStore interface {
	GetByID(ctx context.Context, id string) (Principal, error)

	// IncrementEpoch atomically advances the principal's password epoch,
	// killing every outstanding token minted under the old epoch. The
	// engine calls it only when RevokeAll handles a security incident.
	IncrementEpoch(ctx context.Context, id string) error
}

// CredentialVerifier is implemented by the host application. Verify checks
// email/password and returns the matching principal, or
// [ErrInvalidCredentials]. Password hashing is entirely the host's concern.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (Principal, error)
}

// BlacklistStore is the durable registry of revoked token identifiers.
// Insert must be idempotent per jti and report whether the call created
// the row; one-time token burning uses that flag to pick a single winner.
type BlacklistStore interface {
	Insert(ctx context.Context, entry BlacklistEntry) (bool, error)
	Contains(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionRegistry is the durable device session registry. Lookups that
// match nothing return [store.ErrNotFound].
type SessionRegistry interface {
	Create(ctx context.Context, sess Session) error
	AdvanceRotation(ctx context.Context, oldJTI, newJTI, ip string, now time.Time) (Session, error)
	GetByID(ctx context.Context, sessionID string) (Session, error)
	ListBySubject(ctx context.Context, subjectID string) ([]Session, error)
	DeleteByID(ctx context.Context, sessionID string) error
	DeleteByRefreshJTI(ctx context.Context, jti string) error
	DeleteAllForSubject(ctx context.Context, subjectID string) (int, error)
}

// RotationLedger is the append-only anti-replay ledger. Record reports
// false when the old jti was already consumed; that signal must come from
// a storage-level uniqueness constraint, not a read-then-write check.
type RotationLedger interface {
	Record(ctx context.Context, rec RotationRecord) (bool, error)
}

// AttemptLog is the append-only login attempt trail.
type AttemptLog interface {
	Record(ctx context.Context, att LoginAttempt) error
}
