// Package token implements the signed bearer-token codec: HS256 JWTs in
// three kinds (access, refresh, one-time) sharing one claim schema.
//
// The codec is pure. Revocation, epoch comparison, and device checks are
// the engine's job; this package only answers "was this value minted by us,
// is it unexpired, and is it the kind the caller expects".
package token
