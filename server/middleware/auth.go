package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AmareGatie/phase4/auth"
	"github.com/AmareGatie/phase4/auth/authctx"
	"github.com/AmareGatie/phase4/logger"
)

// Gin context keys set by Auth.
const (
	IdentityKey = "identity"
	UserIDKey   = "user_id"
)

// rejectionBody is the only response a rejected request ever gets.
var rejectionBody = map[string]string{"msg": "Authentication invalid"}

// Authenticator is the part of auth.Gate the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (auth.Identity, error)
}

// AuthConfig configures the authentication middleware.
type AuthConfig struct {
	// Gate decides every request that is not skipped.
	Gate Authenticator
	// SkipPaths are exact paths, or prefixes when they end in "/", that
	// bypass authentication.
	SkipPaths []string
	// Log receives the rejection reason. Defaults to the "auth" logger.
	Log *logger.Logger
}

// Auth returns a Gin middleware that runs the gate before any downstream
// handler. On success the identity is stored with authctx.Set on the request
// context and under IdentityKey and UserIDKey on the Gin context. On failure
// the request is aborted with 401 and {"msg":"Authentication invalid"},
// whatever the reason.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	log := authLogger(cfg.Log)
	return func(c *gin.Context) {
		if skipped(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		id, err := cfg.Gate.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			logRejection(log, c.Request, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, rejectionBody)
			return
		}

		c.Request = c.Request.WithContext(authctx.Set(c.Request.Context(), id))
		c.Set(IdentityKey, id)
		c.Set(UserIDKey, id.UserID)
		c.Next()
	}
}

// Authenticate is the net/http form of Auth for handlers mounted outside Gin.
func Authenticate(cfg AuthConfig) Middleware {
	log := authLogger(cfg.Log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped(r.URL.Path, cfg.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			id, err := cfg.Gate.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				logRejection(log, r, err)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(rejectionBody)
				return
			}
			next.ServeHTTP(w, r.WithContext(authctx.Set(r.Context(), id)))
		})
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func skipped(path string, skip []string) bool {
	for _, p := range skip {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

func logRejection(log *logger.Logger, r *http.Request, err error) {
	reason := "invalid_credential"
	if errors.Is(err, auth.ErrMissingOrMalformedCredential) {
		reason = "missing_or_malformed_credential"
	}
	log.WithContext(r.Context()).Warn("Request rejected", map[string]interface{}{
		"reason": reason,
		"method": r.Method,
		"path":   r.URL.Path,
		"error":  err.Error(),
	})
}

func authLogger(l *logger.Logger) *logger.Logger {
	if l != nil {
		return l.WithComponent("auth")
	}
	return logger.Get("auth")
}
