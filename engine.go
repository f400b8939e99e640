package tokenguard

import (
	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/token"
)

// Engine is the token lifecycle coordinator. Construct one with [Builder]
// and treat it as immutable afterwards; every method is safe for
// concurrent use.
type Engine struct {
	config      Config
	codec       *token.Codec
	blacklist   BlacklistStore
	sessions    SessionRegistry
	ledger      RotationLedger
	attempts    AttemptLog
	principals  PrincipalStore
	verifier    CredentialVerifier
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
}

// Close flushes and stops the audit dispatcher. Call it once when the
// engine is retired; other methods must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
