package tokenguard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/token"
)

// Issue mints a fresh access/refresh pair for principal and registers the
// session row the refresh token will rotate through. The caller is
// expected to have authenticated the principal already; [Engine.Login]
// wraps the credential path.
//
// Client metadata (IP, device fingerprint, device label) is taken from
// ctx; see [WithClientInfo]. Tokens minted without a fingerprint carry no
// device binding and the gate will not enforce one.
func (e *Engine) Issue(ctx context.Context, principal Principal) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	now := time.Now().UTC()
	sessionID := uuid.NewString()
	refreshJTI := uuid.NewString()

	fingerprint := fingerprintFromContext(ctx)
	ip := clientIPFromContext(ctx)

	var deviceHash, ipHash string
	if fingerprint != "" {
		deviceHash = internal.HashValue(fingerprint)
	}
	if ip != "" {
		ipHash = internal.HashValue(ip)
	}

	access, err := e.codec.Mint(token.MintParams{
		Kind:          token.KindAccess,
		JTI:           uuid.NewString(),
		Subject:       principal.ID,
		Role:          principal.Role,
		Permissions:   principal.Permissions,
		PasswordEpoch: principal.PasswordEpoch,
		BranchID:      principal.BranchID,
		DeviceHash:    deviceHash,
		IPHash:        ipHash,
	}, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}

	refresh, err := e.codec.Mint(token.MintParams{
		Kind:          token.KindRefresh,
		JTI:           refreshJTI,
		Subject:       principal.ID,
		Role:          principal.Role,
		Permissions:   principal.Permissions,
		PasswordEpoch: principal.PasswordEpoch,
		BranchID:      principal.BranchID,
		DeviceHash:    deviceHash,
		IPHash:        ipHash,
	}, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}

	// The session row must exist before the refresh token is handed out;
	// rotation resolves sessions by refresh_jti.
	err = e.sessions.Create(ctx, Session{
		SessionID:         sessionID,
		SubjectID:         principal.ID,
		RefreshJTI:        refreshJTI,
		DeviceFingerprint: fingerprint,
		DeviceLabel:       deviceLabelFromContext(ctx),
		IPAddress:         ip,
		CreatedAt:         now,
		LastSeenAt:        now,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricSessionCreated)

	return TokenPair{
		Access:    access,
		Refresh:   refresh,
		SessionID: sessionID,
	}, nil
}

// IssueActionToken mints a short-lived single-purpose token bound to
// action (for example "confirm_transfer"). Action tokens are never
// accepted by [Engine.Authenticate]; redeem them with
// [Engine.ConsumeActionToken].
func (e *Engine) IssueActionToken(ctx context.Context, principal Principal, action string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if action == "" {
		return "", fmt.Errorf("%w: empty action", ErrTokenInvalid)
	}

	now := time.Now().UTC()
	jti := uuid.NewString()

	raw, err := e.codec.Mint(token.MintParams{
		Kind:          token.KindOneTime,
		JTI:           jti,
		Subject:       principal.ID,
		Role:          principal.Role,
		PasswordEpoch: principal.PasswordEpoch,
		BranchID:      principal.BranchID,
		Action:        action,
	}, now)
	if err != nil {
		return "", fmt.Errorf("mint action token: %w", err)
	}

	e.metricInc(MetricActionTokenIssued)
	e.emitAudit(ctx, auditEventActionTokenIssued, true, principal.ID, "", nil, func() map[string]string {
		return map[string]string{"action": action}
	})

	return raw, nil
}

// ConsumeActionToken validates raw as a one-time token for action and
// burns it. A token already burned fails with [ErrTokenBlacklisted]; a
// token minted for a different action fails with [ErrActionMismatch].
// Returns the subject the token was minted for.
func (e *Engine) ConsumeActionToken(ctx context.Context, raw, action string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.codec.Decode(raw, token.KindOneTime)
	if err != nil {
		e.emitAudit(ctx, auditEventActionTokenInvalid, false, "", "", ErrTokenInvalid, nil)
		return "", ErrTokenInvalid
	}

	if claims.Action != action {
		e.emitAudit(ctx, auditEventActionTokenInvalid, false, claims.Subject, "", ErrActionMismatch, func() map[string]string {
			return map[string]string{"want": action, "got": claims.Action}
		})
		return "", ErrActionMismatch
	}

	principal, err := e.principals.GetByID(ctx, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if claims.PasswordEpoch != principal.PasswordEpoch {
		e.emitAudit(ctx, auditEventActionTokenInvalid, false, claims.Subject, "", ErrTokenVersionMismatch, func() map[string]string {
			return map[string]string{"action": action}
		})
		return "", ErrTokenVersionMismatch
	}

	// The blacklist insert is the arbiter: exactly one concurrent redeemer
	// creates the row, everyone else sees a burned token.
	burned, err := e.blacklist.Insert(ctx, BlacklistEntry{
		JTI:       claims.ID,
		SubjectID: claims.Subject,
		TokenKind: string(token.KindOneTime),
		Reason:    "used",
		RevokedAt: time.Now().UTC(),
		ExpiresAt: claims.ExpiresAt.Time,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !burned {
		e.emitAudit(ctx, auditEventActionTokenReplay, false, claims.Subject, "", ErrTokenBlacklisted, func() map[string]string {
			return map[string]string{"action": action}
		})
		return "", ErrTokenBlacklisted
	}

	e.metricInc(MetricActionTokenUsed)
	e.emitAudit(ctx, auditEventActionTokenUsed, true, claims.Subject, "", nil, func() map[string]string {
		return map[string]string{"action": action}
	})

	return claims.Subject, nil
}
