package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/eventpulse/backend/internal/model"
)

// LoginLimiter throttles credential attempts per client IP: at most
// `attempts` requests in any `window`-sized span. The bucket replenishes one
// attempt per full window, so a burst cannot be repeated until the window
// has actually passed.
type LoginLimiter struct {
	limit   rate.Limit
	burst   int
	window  time.Duration
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLoginLimiter(attempts int, window time.Duration) *LoginLimiter {
	if attempts <= 0 {
		return nil
	}
	return &LoginLimiter{
		limit:   rate.Every(window),
		burst:   attempts,
		window:  window,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *LoginLimiter) Handler() gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if !l.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Error: "Too many login attempts. Please try again later.",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

func (l *LoginLimiter) allow(key string, now time.Time) bool {
	return l.getLimiter(key).AllowN(now, 1)
}

func (l *LoginLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	l.cleanupLocked(now)
	return limiter
}

func (l *LoginLimiter) cleanupLocked(now time.Time) {
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.window {
			delete(l.clients, key)
		}
	}
}
