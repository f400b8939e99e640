package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned by [Codec.Decode] for any token that cannot be
// accepted: bad signature, malformed claims, expiry, or a kind mismatch.
// The cause is deliberately not distinguished to callers.
var ErrInvalid = errors.New("invalid token")

// Kind discriminates the three token families minted by the engine.
type Kind string

const (
	// KindAccess is the short-lived bearer token presented on every request.
	KindAccess Kind = "access"
	// KindRefresh is the rotating token exchanged for a new pair.
	KindRefresh Kind = "refresh"
	// KindOneTime is a single-use action token (password-reset style flows).
	// It is never accepted by the authentication gate.
	KindOneTime Kind = "one_time"
)

// Claims is the wire claim set shared by all three token kinds.
// Subject and ID (the jti) live in the embedded RegisteredClaims.
type Claims struct {
	Role          string   `json:"role,omitempty"`
	Permissions   []string `json:"perms,omitempty"`
	PasswordEpoch int      `json:"pwd_epoch"`
	BranchID      string   `json:"branch_id,omitempty"`
	DeviceHash    string   `json:"device_fp,omitempty"`
	IPHash        string   `json:"ip_hash,omitempty"`
	Kind          Kind     `json:"kind"`
	Action        string   `json:"action,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the signing material and per-kind lifetimes.
type Config struct {
	SigningKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	OneTimeTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Codec encodes and decodes the engine's bearer tokens. Pure and stateless:
// no I/O, safe for concurrent use.
type Codec struct {
	config Config
}

// MintParams carries the identity and binding material for one token.
// JTI must be unique per token; the caller owns its generation so a
// rotation can pre-commit the successor's jti before minting.
type MintParams struct {
	Kind          Kind
	JTI           string
	Subject       string
	Role          string
	Permissions   []string
	PasswordEpoch int
	BranchID      string
	DeviceHash    string
	IPHash        string
	Action        string
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("signing key must be at least 256 bits")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.OneTimeTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Codec{config: cfg}, nil
}

// TTL returns the configured lifetime for the given kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	switch kind {
	case KindRefresh:
		return c.config.RefreshTTL
	case KindOneTime:
		return c.config.OneTimeTTL
	default:
		return c.config.AccessTTL
	}
}

// Mint signs a token of p.Kind expiring TTL(kind) after now.
func (c *Codec) Mint(p MintParams, now time.Time) (string, error) {
	if p.JTI == "" || p.Subject == "" {
		return "", errors.New("jti and subject are required")
	}
	switch p.Kind {
	case KindAccess, KindRefresh, KindOneTime:
	default:
		return "", fmt.Errorf("unknown token kind %q", p.Kind)
	}

	claims := Claims{
		Role:          p.Role,
		Permissions:   p.Permissions,
		PasswordEpoch: p.PasswordEpoch,
		BranchID:      p.BranchID,
		DeviceHash:    p.DeviceHash,
		IPHash:        p.IPHash,
		Kind:          p.Kind,
		Action:        p.Action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			ID:        p.JTI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(p.Kind))),
			Issuer:    c.config.Issuer,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.config.SigningKey)
}

// Decode verifies raw and returns its claims. The token must be of the
// wanted kind; a refresh token presented where an access token is expected
// (or vice versa) fails with [ErrInvalid] exactly like a forged one.
func (c *Codec) Decode(raw string, want Kind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.SigningKey, nil
	})
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.Kind != want || claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}
