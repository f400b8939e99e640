// Package store implements the engine's durable state on Postgres:
// the token blacklist, the session registry, the rotation ledger, and the
// login-attempt log, plus the embedded schema migrations.
//
// The rotation ledger is the anti-replay arbiter. Its UNIQUE constraint on
// old_refresh_jti, exercised through INSERT ... ON CONFLICT DO NOTHING, is
// the only mechanism that decides rotation races; nothing here takes locks.
package store
