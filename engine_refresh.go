package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/tokenguard/store"
	"github.com/MrEthical07/tokenguard/token"
)

// Rotate exchanges a refresh token for a fresh access/refresh pair and
// retires the presented token.
//
// Single use is arbitrated by the rotation ledger's uniqueness constraint
// on the consumed jti: under any number of concurrent presentations of
// the same refresh token, exactly one caller's ledger insert lands and
// wins. Every loser gets [ErrReplayDetected], and a detected replay
// revokes the subject's entire session set on the assumption that the
// refresh token leaked.
//
// Side effects after the ledger insert (blacklisting the consumed jti,
// advancing the session row) are best effort: the rotation has already
// happened, so their failure is logged and the new pair still returned.
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.codec.Decode(refreshToken, token.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrTokenInvalid, nil)
		return TokenPair{}, ErrTokenInvalid
	}

	now := time.Now().UTC()
	ip := clientIPFromContext(ctx)
	newRefreshJTI := uuid.NewString()

	// Claim the old jti before minting anything. Everything downstream of
	// a successful Record is on the winner's path.
	won, err := e.ledger.Record(ctx, RotationRecord{
		OldRefreshJTI:     claims.ID,
		NewRefreshJTI:     newRefreshJTI,
		SubjectID:         claims.Subject,
		RotatedAt:         now,
		IPAddress:         ip,
		DeviceFingerprint: fingerprintFromContext(ctx),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !won {
		e.metricInc(MetricReplayDetected)
		e.emitAudit(ctx, auditEventReplayDetected, false, claims.Subject, "", ErrReplayDetected, func() map[string]string {
			return map[string]string{"jti": claims.ID}
		})
		if _, err := e.RevokeAll(ctx, claims.Subject, RevokeReasonTokenReuse); err != nil {
			log.Printf("tokenguard: revoke-all after replay failed for subject %s: %v", claims.Subject, err)
		}
		return TokenPair{}, ErrReplayDetected
	}

	// A winner whose jti is blacklisted was explicitly revoked (logout,
	// session revoke) rather than replayed; reject without the incident
	// response. This check must come after the ledger insert: a replayed
	// token is blacklisted too (reason rotated), and it must resolve to
	// ErrReplayDetected via the ledger, not to a plain blacklist hit.
	revoked, err := e.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		e.metricInc(MetricBlacklistHit)
		e.emitAudit(ctx, auditEventTokenBlacklisted, false, claims.Subject, "", ErrTokenBlacklisted, nil)
		return TokenPair{}, ErrTokenBlacklisted
	}

	// Re-read the principal so the successor pair carries current role,
	// permissions, and epoch rather than whatever the old token froze.
	principal, err := e.principals.GetByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if principal.PasswordEpoch != claims.PasswordEpoch {
		e.metricInc(MetricEpochMismatch)
		e.emitAudit(ctx, auditEventEpochMismatch, false, claims.Subject, "", ErrTokenVersionMismatch, func() map[string]string {
			return map[string]string{"reason": "password_epoch_mismatch"}
		})
		return TokenPair{}, ErrTokenVersionMismatch
	}

	access, err := e.codec.Mint(token.MintParams{
		Kind:          token.KindAccess,
		JTI:           uuid.NewString(),
		Subject:       principal.ID,
		Role:          principal.Role,
		Permissions:   principal.Permissions,
		PasswordEpoch: principal.PasswordEpoch,
		BranchID:      principal.BranchID,
		DeviceHash:    claims.DeviceHash,
		IPHash:        claims.IPHash,
	}, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}

	refresh, err := e.codec.Mint(token.MintParams{
		Kind:          token.KindRefresh,
		JTI:           newRefreshJTI,
		Subject:       principal.ID,
		Role:          principal.Role,
		Permissions:   principal.Permissions,
		PasswordEpoch: principal.PasswordEpoch,
		BranchID:      principal.BranchID,
		DeviceHash:    claims.DeviceHash,
		IPHash:        claims.IPHash,
	}, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}

	// Defense in depth: the ledger already bars reuse, the blacklist just
	// closes the gate path too.
	if _, err := e.blacklist.Insert(ctx, BlacklistEntry{
		JTI:       claims.ID,
		SubjectID: claims.Subject,
		TokenKind: string(token.KindRefresh),
		Reason:    "rotated",
		RevokedAt: now,
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		log.Printf("tokenguard: blacklist of rotated jti %s failed: %v", claims.ID, err)
	}

	var sessionID string
	sess, err := e.sessions.AdvanceRotation(ctx, claims.ID, newRefreshJTI, ip, now)
	switch {
	case err == nil:
		sessionID = sess.SessionID
	case errors.Is(err, store.ErrNotFound):
		// Session revoked underneath the rotation; the blacklist and the
		// ledger still retire the old jti.
	default:
		log.Printf("tokenguard: session advance for jti %s failed: %v", claims.ID, err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, principal.ID, sessionID, nil, nil)

	return TokenPair{
		Access:    access,
		Refresh:   refresh,
		SessionID: sessionID,
	}, nil
}
