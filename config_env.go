package tokenguard

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// envConfig mirrors the environment variable surface. Durations are
// time.ParseDuration strings (e.g. "60m", "168h").
type envConfig struct {
	SigningKey string `mapstructure:"TOKEN_SIGNING_KEY"`
	AccessTTL  string `mapstructure:"TOKEN_ACCESS_TTL"`
	RefreshTTL string `mapstructure:"TOKEN_REFRESH_TTL"`
	OneTimeTTL string `mapstructure:"TOKEN_ONE_TIME_TTL"`
	Issuer     string `mapstructure:"TOKEN_ISSUER"`

	RateLimitEnabled     bool   `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitMaxAttempts int    `mapstructure:"RATE_LIMIT_MAX_ATTEMPTS"`
	RateLimitWindow      string `mapstructure:"RATE_LIMIT_WINDOW"`

	AuditEnabled bool `mapstructure:"AUDIT_ENABLED"`

	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	RedisAddress  string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
}

// LoadConfig reads .env (if present), then the environment, and returns a
// validated [Config]. Environment variables override .env values. A
// missing .env file is not an error.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("TOKEN_ACCESS_TTL", "60m")
	v.SetDefault("TOKEN_REFRESH_TTL", "168h") // 7d
	v.SetDefault("TOKEN_ONE_TIME_TTL", "60m")
	v.SetDefault("TOKEN_ISSUER", "")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_MAX_ATTEMPTS", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	var env envConfig
	if err := v.Unmarshal(&env); err != nil {
		return Config{}, err
	}

	if env.SigningKey == "" {
		return Config{}, errors.New("config: TOKEN_SIGNING_KEY must be set")
	}

	cfg := defaultConfig()
	cfg.Tokens.SigningKey = []byte(env.SigningKey)
	cfg.Tokens.AccessTTL = parseDuration(env.AccessTTL, cfg.Tokens.AccessTTL)
	cfg.Tokens.RefreshTTL = parseDuration(env.RefreshTTL, cfg.Tokens.RefreshTTL)
	cfg.Tokens.OneTimeTTL = parseDuration(env.OneTimeTTL, cfg.Tokens.OneTimeTTL)
	cfg.Tokens.Issuer = env.Issuer
	cfg.RateLimit.Enabled = env.RateLimitEnabled
	if env.RateLimitMaxAttempts > 0 {
		cfg.RateLimit.MaxAttempts = env.RateLimitMaxAttempts
	}
	cfg.RateLimit.Window = parseDuration(env.RateLimitWindow, cfg.RateLimit.Window)
	cfg.Audit.Enabled = env.AuditEnabled
	cfg.Database.DSN = env.DatabaseURL
	cfg.Redis.Address = env.RedisAddress
	cfg.Redis.Password = env.RedisPassword
	cfg.Redis.DB = env.RedisDB

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
