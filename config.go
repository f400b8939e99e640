package tokenguard

import (
	"errors"
	"time"
)

// Config defines the engine's tunable surface. Configure once, treat as
// immutable after [Builder.Build].
type Config struct {
	Tokens    TokenConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Database  DatabaseConfig
	Redis     RedisConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds the signing material and per-kind lifetimes.
type TokenConfig struct {
	SigningKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	OneTimeTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the per-IP login lockout.
type RateLimitConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
	RedisPrefix string
}

// AuditConfig controls the async security audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DATABASE CONFIG
====================================
*/

// DatabaseConfig points the durable stores at Postgres.
type DatabaseConfig struct {
	DSN             string
	MaxConnections  int32
	MinConnections  int32
	ConnMaxLifetime time.Duration
}

// RedisConfig points the rate limiter at Redis.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the engine defaults. The signing key is the only
// field with no usable default.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Tokens: TokenConfig{
			AccessTTL:  60 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			OneTimeTTL: time.Hour,
			Leeway:     5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			RedisPrefix: "tg",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Database: DatabaseConfig{
			MaxConnections:  25,
			MinConnections:  5,
			ConnMaxLifetime: 30 * time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Tokens.SigningKey = cloneBytes(cfg.Tokens.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency. Called by [Builder.Build].
func (c *Config) Validate() error {
	if len(c.Tokens.SigningKey) < 32 {
		return errors.New("Tokens SigningKey must be at least 256 bits")
	}
	if c.Tokens.AccessTTL <= 0 {
		return errors.New("Tokens AccessTTL must be > 0")
	}
	if c.Tokens.RefreshTTL <= 0 {
		return errors.New("Tokens RefreshTTL must be > 0")
	}
	if c.Tokens.OneTimeTTL <= 0 {
		return errors.New("Tokens OneTimeTTL must be > 0")
	}
	if c.Tokens.RefreshTTL < c.Tokens.AccessTTL {
		return errors.New("Tokens RefreshTTL must be >= AccessTTL")
	}
	if c.Tokens.Leeway < 0 || c.Tokens.Leeway > 2*time.Minute {
		return errors.New("Tokens Leeway must be between 0 and 2m")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts <= 0 {
			return errors.New("RateLimit MaxAttempts must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
