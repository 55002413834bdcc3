package auth

import (
	"context"

	"github.com/AmareGatie/phase4/auth/jwt"
)

// TokenValidator verifies a raw token and returns the identity it proves.
// Middleware depends on this interface rather than on the JWT service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (Identity, error)
}

// TokenValidatorFunc adapts an ordinary function to TokenValidator.
type TokenValidatorFunc func(ctx context.Context, token string) (Identity, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

// NewJWTValidator bridges a Claims-typed jwt.Service to TokenValidator.
func NewJWTValidator(svc *jwt.Service[*Claims]) TokenValidator {
	return TokenValidatorFunc(func(_ context.Context, token string) (Identity, error) {
		claims, err := svc.Parse(token)
		if err != nil {
			return Identity{}, err
		}
		return claims.Identity(), nil
	})
}
