package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names an HMAC signing algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// minSecretLen is the shortest secret accepted for signing.
const minSecretLen = 16

// Config configures the JWT token service.
type Config struct {
	// Secret is the shared HMAC key. Read once at startup.
	Secret string `mapstructure:"secret"`

	// Method is the signing algorithm (default: HS256). Tokens signed with
	// any other algorithm are rejected.
	Method SigningMethod `mapstructure:"method"`

	// Issuer is checked against "iss" when set.
	Issuer string `mapstructure:"issuer"`

	// Audience is checked against "aud" when set.
	Audience string `mapstructure:"audience"`

	// RequireExpiry rejects tokens without an "exp" claim. An "exp" that is
	// present is always checked.
	RequireExpiry bool `mapstructure:"require_expiry"`

	// Leeway tolerates clock skew on time-based claims.
	Leeway time.Duration `mapstructure:"leeway"`

	// TokenTTL is the lifetime of tokens minted by Issue (default: 1h).
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = time.Hour
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	switch c.Method {
	case HS256, HS384, HS512:
	default:
		return errors.New("jwt: unsupported signing method: " + string(c.Method))
	}
	if c.Secret == "" {
		return errors.New("jwt: secret is required")
	}
	if len(c.Secret) < minSecretLen {
		return errors.New("jwt: secret must be at least 16 bytes")
	}
	if c.Leeway < 0 {
		return errors.New("jwt: leeway must not be negative")
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}

func (c *Config) key() []byte {
	return []byte(c.Secret)
}
