// Package jwt signs and verifies HMAC JWTs for a caller-defined claims type.
//
// The service is parameterized by a claims type T, which must implement
// jwt.Claims (typically by embedding jwt.RegisteredClaims):
//
//	svc, err := jwt.NewService(&cfg, func() *MyClaims { return &MyClaims{} })
//	token, err := svc.Issue(&MyClaims{Username: "alice"}, time.Hour)
//	claims, err := svc.Parse(token)
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Service generates and parses tokens carrying claims of type T.
type Service[T gojwt.Claims] struct {
	cfg      Config
	newEmpty func() T
	parser   *gojwt.Parser
	now      func() time.Time
}

// NewService creates a new JWT service. newEmpty returns a fresh T for
// parsing.
func NewService[T gojwt.Claims](cfg *Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service[T]{cfg: *cfg, newEmpty: newEmpty, now: time.Now}
	s.parser = gojwt.NewParser(s.parserOptions()...)
	return s, nil
}

// Generate signs claims as they are.
func (s *Service[T]) Generate(claims T) (string, error) {
	token := gojwt.NewWithClaims(s.cfg.signingMethod(), claims)
	signed, err := token.SignedString(s.cfg.key())
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Issue stamps iat, exp, iss and aud on claims before signing. A ttl of zero
// uses the configured TokenTTL.
func (s *Service[T]) Issue(claims T, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = s.cfg.TokenTTL
	}
	setter, ok := any(claims).(interface {
		SetDefaults(now time.Time, ttl time.Duration, issuer, audience string)
	})
	if !ok {
		return "", errors.New("jwt: claims type cannot be stamped; use Generate")
	}
	setter.SetDefaults(s.now(), ttl, s.cfg.Issuer, s.cfg.Audience)
	return s.Generate(claims)
}

// Parse verifies the signature, the algorithm, time-based claims and the
// configured issuer and audience, then returns the claims.
func (s *Service[T]) Parse(tokenString string) (T, error) {
	var zero T
	claims := s.newEmpty()
	token, err := s.parser.ParseWithClaims(tokenString, claims, s.keyFunc)
	if err != nil {
		return zero, fmt.Errorf("jwt: parse token: %w", err)
	}
	if !token.Valid {
		return zero, errors.New("jwt: invalid token")
	}
	parsed, ok := token.Claims.(T)
	if !ok {
		return zero, errors.New("jwt: unexpected claims type")
	}
	return parsed, nil
}

func (s *Service[T]) keyFunc(token *gojwt.Token) (any, error) {
	if token.Method.Alg() != s.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return s.cfg.key(), nil
}

func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
		gojwt.WithIssuedAt(),
		gojwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience))
	}
	if s.cfg.RequireExpiry {
		opts = append(opts, gojwt.WithExpirationRequired())
	}
	if s.cfg.Leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(s.cfg.Leeway))
	}
	return opts
}
