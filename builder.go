package tokenguard

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/store"
	"github.com/MrEthical07/tokenguard/token"
)

// Builder assembles an [Engine]. Configure it fluently, call Build once:
//
//	engine, err := tokenguard.New().
//		WithConfig(cfg).
//		WithPool(pool).
//		WithRedis(rdb).
//		WithPrincipalStore(principals).
//		WithCredentialVerifier(verifier).
//		Build()
type Builder struct {
	config Config
	redis  redis.UniversalClient
	pool   *pgxpool.Pool

	principals PrincipalStore
	verifier   CredentialVerifier
	auditSink  AuditSink

	blacklist BlacklistStore
	sessions  SessionRegistry
	ledger    RotationLedger
	attempts  AttemptLog

	built bool
}

// New creates a Builder preloaded with defaults. Only the signing key and
// the backing services are mandatory.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is cloned, so
// later mutations by the caller do not leak into the engine.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSigningKey sets the token signing key without replacing the rest of
// the configuration.
func (b *Builder) WithSigningKey(key []byte) *Builder {
	b.config.Tokens.SigningKey = cloneBytes(key)
	return b
}

// WithRedis sets the Redis client backing the login rate limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPool sets the Postgres pool the durable stores are built on.
func (b *Builder) WithPool(pool *pgxpool.Pool) *Builder {
	b.pool = pool
	return b
}

// WithPrincipalStore sets the host's identity store.
func (b *Builder) WithPrincipalStore(ps PrincipalStore) *Builder {
	b.principals = ps
	return b
}

// WithCredentialVerifier sets the host's credential checker.
func (b *Builder) WithCredentialVerifier(cv CredentialVerifier) *Builder {
	b.verifier = cv
	return b
}

// WithAuditSink sets the destination for security audit events. Implies
// nothing about Audit.Enabled; set that in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithStores overrides the Postgres-backed stores, mainly for tests and
// for hosts with their own persistence. Any nil argument keeps the
// pool-backed default.
func (b *Builder) WithStores(bl BlacklistStore, sr SessionRegistry, rl RotationLedger, al AttemptLog) *Builder {
	b.blacklist = bl
	b.sessions = sr
	b.ledger = rl
	b.attempts = al
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, and returns the
// engine. A Builder is single use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.principals == nil {
		return nil, errors.New("principal store required")
	}
	if b.verifier == nil {
		return nil, errors.New("credential verifier required")
	}
	if cfg.RateLimit.Enabled && b.redis == nil {
		return nil, errors.New("rate limiting requires a redis client")
	}

	needsPool := b.blacklist == nil || b.sessions == nil || b.ledger == nil || b.attempts == nil
	if needsPool && b.pool == nil {
		return nil, errors.New("postgres pool required unless all stores are overridden")
	}

	codec, err := token.NewCodec(token.Config{
		SigningKey: cfg.Tokens.SigningKey,
		AccessTTL:  cfg.Tokens.AccessTTL,
		RefreshTTL: cfg.Tokens.RefreshTTL,
		OneTimeTTL: cfg.Tokens.OneTimeTTL,
		Issuer:     cfg.Tokens.Issuer,
		Leeway:     cfg.Tokens.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		codec:      codec,
		principals: b.principals,
		verifier:   b.verifier,
		blacklist:  b.blacklist,
		sessions:   b.sessions,
		ledger:     b.ledger,
		attempts:   b.attempts,
	}

	if engine.blacklist == nil {
		engine.blacklist = store.NewBlacklist(b.pool)
	}
	if engine.sessions == nil {
		engine.sessions = store.NewSessions(b.pool)
	}
	if engine.ledger == nil {
		engine.ledger = store.NewRotations(b.pool)
	}
	if engine.attempts == nil {
		engine.attempts = store.NewAttempts(b.pool)
	}

	if cfg.RateLimit.Enabled {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:      cfg.RateLimit.RedisPrefix,
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
