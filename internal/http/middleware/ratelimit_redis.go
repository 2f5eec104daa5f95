package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter makes the limiters count in Redis. A nil client, or
// one that does not answer a ping, leaves them on process memory.
func InitRedisRateLimiter(client *redis.Client) {
	if client == nil {
		redisClient = nil
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		redisClient = nil
		return
	}
	redisClient = client
}

// RedisRateLimit implements a simple fixed-window rate limiter using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<client_ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		limit(c, key, c.FullPath(), maxRequests, window)
	}
}

// UserRateLimit limits requests per authenticated user rather than per IP.
// Requires JWT to run before it.
// key format: user_rl:<scope>:<user_id>:<window_seconds>
func UserRateLimit(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		key := "user_rl:" + scope + ":" + userID + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		limit(c, key, scope+":"+c.FullPath(), maxRequests, window)
	}
}

func limit(c *gin.Context, key, endpoint string, maxRequests int, window time.Duration) {
	var val int64
	if redisClient == nil {
		val = fallbackLimiter.incr(key, window)
	} else {
		ctx := c.Request.Context()
		n, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// on Redis error, fail-open (allow) but set header
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if n == 1 {
			redisClient.Expire(ctx, key, window)
		}
		val = n
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

	if val > int64(maxRequests) {
		RLBlocked.WithLabelValues(endpoint).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": int(window.Seconds()),
		})
		return
	}

	RLRequests.WithLabelValues(endpoint).Inc()
	c.Next()
}
