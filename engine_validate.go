package tokenguard

import (
	"context"
	"fmt"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/token"
)

// Authenticate is the request gate. It validates raw as an access token
// and runs the revocation, epoch, and device checks in a fixed order, so
// a rejected token always reports its most severe defect first:
//
//  1. signature, expiry, and kind (one-time tokens never pass)
//  2. blacklist membership
//  3. password epoch against the current principal record
//  4. device fingerprint binding
//
// The IP hash is compared last and only observed: a mismatch raises an
// audit event but never fails the request, since NAT and mobile networks
// shift IPs legitimately.
//
// Returns the current principal record, not the claims snapshot, so role
// or permission changes take effect on the next request.
func (e *Engine) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Decode(raw, token.KindAccess)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	revoked, err := e.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		e.metricInc(MetricBlacklistHit)
		e.emitAudit(ctx, auditEventTokenBlacklisted, false, claims.Subject, "", ErrTokenBlacklisted, nil)
		return nil, ErrTokenBlacklisted
	}

	principal, err := e.principals.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if principal.PasswordEpoch != claims.PasswordEpoch {
		e.metricInc(MetricEpochMismatch)
		e.emitAudit(ctx, auditEventEpochMismatch, false, claims.Subject, "", ErrTokenVersionMismatch, nil)
		return nil, ErrTokenVersionMismatch
	}

	if err := e.checkDeviceBinding(ctx, claims); err != nil {
		return nil, err
	}

	e.observeIPBinding(ctx, claims)

	return &principal, nil
}

// checkDeviceBinding compares the token's device hash against the hash of
// the fingerprint on ctx. Tokens minted without a fingerprint carry no
// binding and pass; tokens minted with one reject a missing or different
// fingerprint.
func (e *Engine) checkDeviceBinding(ctx context.Context, claims *token.Claims) error {
	if claims.DeviceHash == "" {
		return nil
	}

	fingerprint := fingerprintFromContext(ctx)
	if fingerprint != "" && internal.HashValue(fingerprint) == claims.DeviceHash {
		return nil
	}

	e.metricInc(MetricDeviceRejected)
	e.emitAudit(ctx, auditEventDeviceRejected, false, claims.Subject, "", ErrSuspiciousDevice, nil)
	return ErrSuspiciousDevice
}

func (e *Engine) observeIPBinding(ctx context.Context, claims *token.Claims) {
	if claims.IPHash == "" {
		return
	}

	ip := clientIPFromContext(ctx)
	if ip == "" || internal.HashValue(ip) == claims.IPHash {
		return
	}

	e.metricInc(MetricIPMismatchObserved)
	e.emitAudit(ctx, auditEventIPChangeObserved, true, claims.Subject, "", nil, nil)
}
