package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MrEthical07/tokenguard/store"
	"github.com/MrEthical07/tokenguard/token"
)

// Revocation reasons. Security-incident reasons additionally advance the
// subject's password epoch, which invalidates outstanding access tokens
// immediately instead of letting them run out their lifetime.
const (
	RevokeReasonLogout             = "logout"
	RevokeReasonLogoutAll          = "logout_all"
	RevokeReasonTokenReuse         = "token_reuse"
	RevokeReasonSuspiciousActivity = "suspicious_activity"
	RevokeReasonAdminRevoked       = "admin_revoked"
)

func securityIncidentReason(reason string) bool {
	switch reason {
	case RevokeReasonTokenReuse, RevokeReasonSuspiciousActivity, RevokeReasonAdminRevoked:
		return true
	}
	return false
}

// Revoke blacklists a single token of any kind. Revoking a refresh token
// also drops its session row. Idempotent: revoking an already-revoked
// token succeeds.
func (e *Engine) Revoke(ctx context.Context, raw, reason string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	claims, kind, err := e.decodeAnyKind(raw)
	if err != nil {
		return ErrTokenInvalid
	}

	if _, err := e.blacklist.Insert(ctx, BlacklistEntry{
		JTI:       claims.ID,
		SubjectID: claims.Subject,
		TokenKind: string(kind),
		Reason:    reason,
		RevokedAt: time.Now().UTC(),
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if kind == token.KindRefresh {
		if err := e.sessions.DeleteByRefreshJTI(ctx, claims.ID); err != nil {
			log.Printf("tokenguard: session delete for revoked jti %s failed: %v", claims.ID, err)
		}
	}

	e.metricInc(MetricSessionRevoked)
	return nil
}

// Logout retires one device session: the refresh token is blacklisted and
// its session row removed. The paired access token keeps working until it
// expires; hosts that need immediate access revocation call [Engine.Revoke]
// on it as well.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	claims, err := e.codec.Decode(refreshToken, token.KindRefresh)
	if err != nil {
		return ErrTokenInvalid
	}

	if _, err := e.blacklist.Insert(ctx, BlacklistEntry{
		JTI:       claims.ID,
		SubjectID: claims.Subject,
		TokenKind: string(token.KindRefresh),
		Reason:    RevokeReasonLogout,
		RevokedAt: time.Now().UTC(),
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.sessions.DeleteByRefreshJTI(ctx, claims.ID); err != nil {
		log.Printf("tokenguard: session delete on logout failed: %v", err)
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventLogoutSession, true, claims.Subject, "", nil, nil)
	return nil
}

// RevokeAll retires every session of the subject and reports how many were
// dropped. Each live refresh jti is blacklisted before the session rows go,
// so a racing rotation cannot resurrect one.
//
// When reason marks a security incident the subject's password epoch is
// advanced as well, killing outstanding access tokens that the blacklist
// sweep cannot reach (their jtis were never recorded).
func (e *Engine) RevokeAll(ctx context.Context, subjectID, reason string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	now := time.Now().UTC()

	sessions, err := e.sessions.ListBySubject(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for _, sess := range sessions {
		// Session rows do not carry the token expiry; a full refresh
		// lifetime from now always covers the remaining validity.
		if _, err := e.blacklist.Insert(ctx, BlacklistEntry{
			JTI:       sess.RefreshJTI,
			SubjectID: subjectID,
			TokenKind: string(token.KindRefresh),
			Reason:    reason,
			RevokedAt: now,
			ExpiresAt: now.Add(e.config.Tokens.RefreshTTL),
		}); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	count, err := e.sessions.DeleteAllForSubject(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if securityIncidentReason(reason) {
		if err := e.principals.IncrementEpoch(ctx, subjectID); err != nil {
			return count, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		e.metricInc(MetricEpochBumped)
	}

	for range sessions {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventRevokeAll, true, subjectID, "", nil, func() map[string]string {
		return map[string]string{
			"reason":   reason,
			"sessions": fmt.Sprintf("%d", count),
		}
	})

	return count, nil
}

// LogoutAll is the user-initiated "sign out everywhere". Unlike the
// security-incident path it leaves the password epoch alone, so the user
// is not forced through re-authentication flows beyond the logins
// themselves.
func (e *Engine) LogoutAll(ctx context.Context, subjectID string) (int, error) {
	count, err := e.RevokeAll(ctx, subjectID, RevokeReasonLogoutAll)
	if err != nil {
		return count, err
	}
	e.emitAudit(ctx, auditEventLogoutAll, true, subjectID, "", nil, nil)
	return count, nil
}

// RevokeSession retires one session by ID on behalf of subjectID. A
// session owned by someone else reports [ErrSessionNotFound] rather than
// leaking its existence.
func (e *Engine) RevokeSession(ctx context.Context, subjectID, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	sess, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if sess.SubjectID != subjectID {
		return ErrSessionNotFound
	}

	now := time.Now().UTC()
	if _, err := e.blacklist.Insert(ctx, BlacklistEntry{
		JTI:       sess.RefreshJTI,
		SubjectID: subjectID,
		TokenKind: string(token.KindRefresh),
		Reason:    RevokeReasonLogout,
		RevokedAt: now,
		ExpiresAt: now.Add(e.config.Tokens.RefreshTTL),
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, subjectID, sessionID, nil, nil)
	return nil
}

// Sessions lists the subject's live sessions, most recently seen first.
// The session matching currentSessionID is flagged so interfaces can mark
// "this device".
func (e *Engine) Sessions(ctx context.Context, subjectID, currentSessionID string) ([]SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	sessions, err := e.sessions.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionInfo{
			SessionID:   sess.SessionID,
			DeviceLabel: sess.DeviceLabel,
			IPAddress:   sess.IPAddress,
			CreatedAt:   sess.CreatedAt,
			LastSeenAt:  sess.LastSeenAt,
			IsCurrent:   sess.SessionID == currentSessionID,
		})
	}
	return out, nil
}

// PurgeExpired drops blacklist rows whose tokens have expired on their
// own. Run it periodically; the engine never schedules it itself.
func (e *Engine) PurgeExpired(ctx context.Context) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.blacklist.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// decodeAnyKind tries each token kind in turn. Used only by Revoke, where
// the caller hands over an arbitrary token.
func (e *Engine) decodeAnyKind(raw string) (*token.Claims, token.Kind, error) {
	for _, kind := range []token.Kind{token.KindAccess, token.KindRefresh, token.KindOneTime} {
		if claims, err := e.codec.Decode(raw, kind); err == nil {
			return claims, kind, nil
		}
	}
	return nil, "", token.ErrInvalid
}
