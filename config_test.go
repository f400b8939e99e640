package tokenguard

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.Tokens.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with key",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name:      "short signing key",
			mutate:    func(c *Config) { c.Tokens.SigningKey = []byte("short") },
			wantValid: false,
		},
		{
			name:      "zero access ttl",
			mutate:    func(c *Config) { c.Tokens.AccessTTL = 0 },
			wantValid: false,
		},
		{
			name:      "refresh shorter than access",
			mutate:    func(c *Config) { c.Tokens.RefreshTTL = c.Tokens.AccessTTL - time.Minute },
			wantValid: false,
		},
		{
			name:      "excessive leeway",
			mutate:    func(c *Config) { c.Tokens.Leeway = 10 * time.Minute },
			wantValid: false,
		},
		{
			name:      "negative leeway",
			mutate:    func(c *Config) { c.Tokens.Leeway = -time.Second },
			wantValid: false,
		},
		{
			name:      "zero max attempts with limiter on",
			mutate:    func(c *Config) { c.RateLimit.MaxAttempts = 0 },
			wantValid: false,
		},
		{
			name: "zero max attempts with limiter off",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.MaxAttempts = 0
			},
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigDetachesKey(t *testing.T) {
	cfg := validTestConfig()
	clone := cloneConfig(cfg)

	cfg.Tokens.SigningKey[0] = 'X'
	if clone.Tokens.SigningKey[0] == 'X' {
		t.Fatal("clone shares signing key backing array")
	}
}

func TestBuilderRequiresServices(t *testing.T) {
	cfg := validTestConfig()
	cfg.RateLimit.Enabled = false

	// Missing principal store.
	_, err := New().WithConfig(cfg).
		WithCredentialVerifier(newMockVerifier(newMockPrincipalStore())).
		WithStores(newMemBlacklist(), newMemSessions(), newMemLedger(), &memAttempts{}).
		Build()
	if err == nil {
		t.Fatal("expected error without principal store")
	}

	// Missing verifier.
	_, err = New().WithConfig(cfg).
		WithPrincipalStore(newMockPrincipalStore()).
		WithStores(newMemBlacklist(), newMemSessions(), newMemLedger(), &memAttempts{}).
		Build()
	if err == nil {
		t.Fatal("expected error without credential verifier")
	}

	// Rate limiting on but no redis.
	limited := validTestConfig()
	_, err = New().WithConfig(limited).
		WithPrincipalStore(newMockPrincipalStore()).
		WithCredentialVerifier(newMockVerifier(newMockPrincipalStore())).
		WithStores(newMemBlacklist(), newMemSessions(), newMemLedger(), &memAttempts{}).
		Build()
	if err == nil {
		t.Fatal("expected error with rate limiting and no redis")
	}

	// No pool and no store overrides.
	_, err = New().WithConfig(cfg).
		WithPrincipalStore(newMockPrincipalStore()).
		WithCredentialVerifier(newMockVerifier(newMockPrincipalStore())).
		Build()
	if err == nil {
		t.Fatal("expected error without pool or store overrides")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	cfg := validTestConfig()
	cfg.RateLimit.Enabled = false

	b := New().WithConfig(cfg).
		WithPrincipalStore(newMockPrincipalStore()).
		WithCredentialVerifier(newMockVerifier(newMockPrincipalStore())).
		WithStores(newMemBlacklist(), newMemSessions(), newMemLedger(), &memAttempts{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second Build succeeded")
	}
}
