package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/AmareGatie/phase4/errors"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	Enabled bool `mapstructure:"enabled"`
	// RequestsPerMinute is the maximum number of requests allowed per minute per key.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	// KeyFunc extracts the rate limit key from a request. Defaults to UserBasedKey.
	KeyFunc func(*gin.Context) string `mapstructure:"-"`
}

// RateLimit returns a Gin middleware that applies a per-key sliding window.
// Mount it after Auth so UserBasedKey sees the verified user id. The cleanup
// loop stops when ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 120
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = UserBasedKey
	}

	rl := newRateLimiter(cfg.RequestsPerMinute, time.Minute)
	go rl.cleanup(ctx, 5*time.Minute)

	return func(c *gin.Context) {
		if !rl.allow(cfg.KeyFunc(c), time.Now()) {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			appErr := apperrors.RateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

// UserBasedKey uses the user id set by Auth, falling back to client IP.
func UserBasedKey(c *gin.Context) string {
	if uid := c.GetString(UserIDKey); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.ClientIP()
}

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *rateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := filterByTime(rl.requests[key], now.Add(-rl.window))
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

func (rl *rateLimiter) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			cutoff := now.Add(-rl.window)
			for key, times := range rl.requests {
				valid := filterByTime(times, cutoff)
				if len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

func filterByTime(times []time.Time, cutoff time.Time) []time.Time {
	var result []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}
