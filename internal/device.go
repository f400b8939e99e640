package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashValue hashes a binding value (device fingerprint, client IP) into a
// hex digest. One-way, equality-comparable only; raw values are never
// persisted or embedded in tokens.
func HashValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// Fingerprint derives the stable device fingerprint from request headers.
// The recipe (UA, Accept-Language, Accept-Encoding joined by "|") must not
// change: issued tokens carry hashes of it.
func Fingerprint(userAgent, acceptLanguage, acceptEncoding string) string {
	parts := []string{userAgent, acceptLanguage, acceptEncoding}
	return HashValue(strings.Join(parts, "|"))
}
