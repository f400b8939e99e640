package tokenguard

import "errors"

var (
	// ErrTokenInvalid covers malformed, unsigned, expired, or wrong-kind tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenBlacklisted is returned for an explicitly revoked token.
	ErrTokenBlacklisted = errors.New("token blacklisted")
	// ErrTokenVersionMismatch is returned when a token carries a stale
	// password epoch. This is the bulk-invalidation mechanism after a
	// credential change.
	ErrTokenVersionMismatch = errors.New("token version mismatch")
	// ErrSuspiciousDevice is returned when the token's device fingerprint
	// hash does not match the presenting device.
	ErrSuspiciousDevice = errors.New("suspicious device")
	// ErrReplayDetected is returned when an already-rotated refresh token is
	// presented again. It is never purely informational: by the time the
	// caller sees it, every session of the subject has been revoked.
	ErrReplayDetected = errors.New("refresh token replay detected")
	// ErrRateLimited is returned when the client IP is inside its login
	// lockout window.
	ErrRateLimited = errors.New("login rate limited")
	// ErrInvalidCredentials is returned by Login for a failed credential check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountPending is returned at login while the account awaits approval.
	ErrAccountPending = errors.New("account pending approval")
	// ErrAccountRejected is returned at login for a rejected account.
	ErrAccountRejected = errors.New("account rejected")
	// ErrAccountSuspended is returned at login for a suspended account.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrSessionNotFound is returned when a session id matches no live session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrActionMismatch is returned when a one-time token is consumed for a
	// different action than it was minted for.
	ErrActionMismatch = errors.New("action token mismatch")
	// ErrStoreUnavailable wraps storage and Redis transport failures. They
	// are fatal to the current request and never retried inside the engine.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned when the engine is used before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
