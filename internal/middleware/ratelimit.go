package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL  = 10 * time.Minute
	cleanupInterval = 5 * time.Minute
)

// SharedLimiter is a rate limiter shared between server processes. The Redis
// client implements it.
type SharedLimiter interface {
	AllowAction(ctx context.Context, username, action string, rate, burst int) (bool, error)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits actions per username. When a SharedLimiter is set it is
// consulted first; if it fails the local limiter decides.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rps      int
	burst    int
	shared   SharedLimiter
	log      *slog.Logger
	now      func() time.Time
}

func NewRateLimiter(rps int, shared SharedLimiter, log *slog.Logger) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rps,
		burst:    rps * 2,
		shared:   shared,
		log:      log,
		now:      time.Now,
	}
}

// Allow reports whether username may perform action now.
func (rl *RateLimiter) Allow(ctx context.Context, username, action string) bool {
	if rl.shared != nil {
		allowed, err := rl.shared.AllowAction(ctx, username, action, rl.rps, rl.burst)
		if err == nil {
			return allowed
		}
		rl.log.Warn("ratelimit.shared.failed", "username", username, "error", err)
	}
	return rl.getLimiter(username).Allow()
}

func (rl *RateLimiter) getLimiter(username string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[username]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst)}
		rl.limiters[username] = entry
	}
	entry.lastSeen = rl.now()
	return entry.limiter
}

// prune drops limiters idle for longer than limiterIdleTTL.
func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-limiterIdleTTL)
	for name, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, name)
		}
	}
}

// Cleanup prunes idle limiters until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.prune()
			}
		}
	}()
}

// RateLimitMiddleware limits requests per authenticated user. Anonymous
// requests pass through.
func RateLimitMiddleware(rl *RateLimiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := CurrentUser(c)
		if username == "" {
			c.Next()
			return
		}

		if !rl.Allow(c.Request.Context(), username, action) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
