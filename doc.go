// Package tokenguard is a token lifecycle and session security engine:
// JWT access tokens, rotating single-use refresh tokens, durable
// revocation, device binding, and a per-IP login lockout.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenguard is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (TokenPair, SessionInfo, MetricsSnapshot,
// etc.). Identity remains the host's concern: the engine consumes a
// [PrincipalStore] and a [CredentialVerifier] and never stores passwords
// or user records itself. Durable state (blacklist, sessions, rotation
// ledger, attempt trail) lives in Postgres via the store sub-package; the
// login limiter lives in Redis.
//
// # Security model
//
// Refresh tokens are single use. The rotation ledger's uniqueness
// constraint on the consumed token ID is the only arbiter of reuse, so
// concurrent presentations of one refresh token admit exactly one winner
// regardless of how many engine instances are running. A detected replay
// is treated as credential theft: every session of the subject is
// revoked and the password epoch advanced, which invalidates outstanding
// access tokens on their next appearance at the gate.
package tokenguard
