// Package middleware adapts the engine's authentication gate to
// net/http handler chains.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	tokenguard "github.com/MrEthical07/tokenguard"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal attached by [Guard].
func PrincipalFromContext(ctx context.Context) (*tokenguard.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*tokenguard.Principal)
	return p, ok
}

// Guard authenticates every request through the engine's gate. Client
// metadata (IP, device fingerprint) is extracted from the request before
// validation so device binding sees the same fingerprint the token was
// minted under. The authenticated principal is attached to the request
// context for downstream handlers.
func Guard(engine *tokenguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := tokenguard.WithClientInfo(r.Context(), tokenguard.ClientInfoFromRequest(r))

			principal, err := engine.Authenticate(ctx, raw)
			if err != nil {
				if errors.Is(err, tokenguard.ErrSuspiciousDevice) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects requests whose principal lacks the named
// permission. Mount it after [Guard].
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok || !principal.HasCapability(capability) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	raw := value[len(bearer):]
	if raw == "" {
		return "", false
	}

	return raw, true
}
