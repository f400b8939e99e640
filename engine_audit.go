package tokenguard

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventReplayDetected     = "refresh_replay_detected"
	auditEventTokenBlacklisted   = "token_blacklisted"
	auditEventEpochMismatch      = "token_epoch_mismatch"
	auditEventDeviceRejected     = "device_binding_rejected"
	auditEventIPChangeObserved   = "ip_change_observed"
	auditEventLogoutSession      = "logout_session"
	auditEventLogoutAll          = "logout_all"
	auditEventRevokeAll          = "revoke_all"
	auditEventSessionRevoked     = "session_revoked"
	auditEventActionTokenIssued  = "action_token_issued"
	auditEventActionTokenUsed    = "action_token_used"
	auditEventActionTokenReplay  = "action_token_replay"
	auditEventActionTokenInvalid = "action_token_invalid"
)

// AuditErrorCode is the stable string form of an engine failure, carried
// in [AuditEvent].Error so sinks never parse Go error text.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenBlacklisted   AuditErrorCode = "token_blacklisted"
	auditErrEpochMismatch      AuditErrorCode = "epoch_mismatch"
	auditErrReplay             AuditErrorCode = "replay_detected"
	auditErrDeviceRejected     AuditErrorCode = "device_rejected"
	auditErrAccountPending     AuditErrorCode = "account_pending"
	auditErrAccountRejected    AuditErrorCode = "account_rejected"
	auditErrAccountSuspended   AuditErrorCode = "account_suspended"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrActionMismatch     AuditErrorCode = "action_mismatch"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrReplayDetected):
		return auditErrReplay
	case errors.Is(err, ErrTokenBlacklisted):
		return auditErrTokenBlacklisted
	case errors.Is(err, ErrTokenVersionMismatch):
		return auditErrEpochMismatch
	case errors.Is(err, ErrSuspiciousDevice):
		return auditErrDeviceRejected
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrAccountPending):
		return auditErrAccountPending
	case errors.Is(err, ErrAccountRejected):
		return auditErrAccountRejected
	case errors.Is(err, ErrAccountSuspended):
		return auditErrAccountSuspended
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrActionMismatch):
		return auditErrActionMismatch
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
