package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MrEthical07/tokenguard/internal/rate"
)

// Login verifies credentials, enforces the per-IP lockout and the account
// status gate, and issues a token pair. The returned [LoginResult] carries
// the principal so handlers can render the logged-in identity without a
// second store round trip.
//
// Lockout counts only credential failures. Logins blocked on account
// status (pending, rejected, suspended) are recorded in the attempt trail
// but never advance the lockout counter, so a pending user retrying does
// not lock out their own IP.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.Check(ctx, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.recordAttempt(ctx, email, false, "rate_limited")
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrRateLimited, nil)
				return nil, ErrRateLimited
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	principal, err := e.verifier.Verify(ctx, email, password)
	if err != nil {
		e.recordAttempt(ctx, email, false, "invalid_credentials")
		e.registerLoginFailure(ctx, ip)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if err := accountStatusToError(principal.Status); err != nil {
		e.recordAttempt(ctx, email, false, "account_"+statusLabel(principal.Status))
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, principal.ID, "", err, nil)
		return nil, err
	}

	pair, err := e.Issue(ctx, principal)
	if err != nil {
		return nil, err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.Reset(ctx, ip); err != nil {
			log.Printf("tokenguard: login limiter reset failed for %s: %v", ip, err)
		}
	}

	e.recordAttempt(ctx, email, true, "")
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, principal.ID, pair.SessionID, nil, nil)

	return &LoginResult{
		TokenPair: pair,
		Principal: principal,
	}, nil
}

// LoginRetryAfter reports how long the caller's IP remains locked out.
// Zero means not locked.
func (e *Engine) LoginRetryAfter(ctx context.Context) time.Duration {
	if e == nil || e.rateLimiter == nil {
		return 0
	}
	d, err := e.rateLimiter.RetryAfter(ctx, clientIPFromContext(ctx))
	if err != nil {
		return 0
	}
	return d
}

// registerLoginFailure advances the lockout counter. The failure being
// recorded matters more than the counter, so limiter errors are logged
// and swallowed.
func (e *Engine) registerLoginFailure(ctx context.Context, ip string) {
	if e.rateLimiter == nil {
		return
	}
	locked, err := e.rateLimiter.RecordFailure(ctx, ip)
	if err != nil {
		log.Printf("tokenguard: login limiter record failed for %s: %v", ip, err)
		return
	}
	if locked {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrRateLimited, func() map[string]string {
			return map[string]string{"trigger": "threshold_reached"}
		})
	}
}

// recordAttempt appends to the login trail. Best effort: a failed append
// never blocks the login path.
func (e *Engine) recordAttempt(ctx context.Context, email string, success bool, reason string) {
	if e.attempts == nil {
		return
	}
	err := e.attempts.Record(ctx, LoginAttempt{
		Email:         email,
		IPAddress:     clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		Success:       success,
		FailureReason: reason,
		AttemptedAt:   time.Now().UTC(),
	})
	if err != nil {
		log.Printf("tokenguard: login attempt record failed: %v", err)
	}
}

func statusLabel(status AccountStatus) string {
	switch status {
	case AccountPending:
		return "pending"
	case AccountApproved:
		return "approved"
	case AccountActive:
		return "active"
	case AccountRejected:
		return "rejected"
	case AccountSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}
