package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	start time.Time
	count int64
}

// memoryLimiter is a fixed-window counter kept in process memory. It backs
// the Redis limiters when no Redis is configured.
type memoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
}

func newMemoryLimiter() *memoryLimiter {
	return &memoryLimiter{clients: make(map[string]*clientInfo)}
}

var fallbackLimiter = newMemoryLimiter()

// incr counts a hit on key and returns the count within the current window.
func (l *memoryLimiter) incr(key string, window time.Duration) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) > window {
		l.clients[key] = &clientInfo{start: now, count: 1}
		l.sweep(now, window)
		return 1
	}
	ci.count++
	return ci.count
}

// sweep drops windows that ended long ago so the map does not grow forever.
func (l *memoryLimiter) sweep(now time.Time, window time.Duration) {
	if len(l.clients) < 10000 {
		return
	}
	for k, ci := range l.clients {
		if now.Sub(ci.start) > 2*window {
			delete(l.clients, k)
		}
	}
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	limiter := newMemoryLimiter()
	return func(c *gin.Context) {
		if limiter.incr(c.ClientIP(), window) > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
