// Package internal contains helpers that are intentionally private to
// tokenguard: binding-value hashing and device fingerprint derivation.
//
// # Sub-packages
//
//   - rate — Redis-backed per-IP login lockout
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenguard API.
//   - Be imported by any package outside the tokenguard module.
package internal
