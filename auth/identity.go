package auth

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Identity is what the gate attaches to an authorized request.
type Identity struct {
	Username string `json:"username"`
	UserID   string `json:"userid"`
}

// Claims is the token payload. Field names match the tokens issued by the
// storefront login flow.
type Claims struct {
	gojwt.RegisteredClaims
	Username string `json:"username"`
	UserID   string `json:"userid"`
}

// NewClaims returns empty claims for parsing.
func NewClaims() *Claims { return &Claims{} }

// Identity returns the identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{Username: c.Username, UserID: c.UserID}
}

// Validate is called by the jwt parser after the registered claims pass.
func (c *Claims) Validate() error {
	if c.Username == "" {
		return errors.New("missing username claim")
	}
	if c.UserID == "" {
		return errors.New("missing userid claim")
	}
	return nil
}

// SetDefaults stamps the registered claims left unset. jwt.Service.Issue
// calls it before signing.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer, audience string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil && ttl > 0 {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && audience != "" {
		c.Audience = gojwt.ClaimStrings{audience}
	}
	if c.Subject == "" {
		c.Subject = c.UserID
	}
}
