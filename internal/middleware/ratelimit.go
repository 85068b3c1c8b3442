package middleware

import (
	"net/http"
	"time"

	"riteswipe-api/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// limiterIdle is how long an unused per-client limiter is kept.
const limiterIdle = 10 * time.Minute

// RateLimiter throttles requests per user, or per client IP before login.
type RateLimiter struct {
	limiters *cache.SimpleCache[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	log      *logrus.Entry
}

func NewRateLimiter(requestsPerSecond float64, burst int, log *logrus.Entry) *RateLimiter {
	return &RateLimiter{
		limiters: cache.NewSimpleCache[string, *rate.Limiter](),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	l := rl.limiters.Update(key, limiterIdle, func(current *rate.Limiter, found bool) *rate.Limiter {
		if found {
			return current
		}
		return rate.NewLimiter(rl.rate, rl.burst)
	})
	return l
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CallerID(c)
		if key == "" {
			key = c.ClientIP()
		}
		if !rl.limiter(key).Allow() {
			rl.log.WithFields(logrus.Fields{
				"key":    key,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

// Purge drops limiters idle for longer than limiterIdle.
func (rl *RateLimiter) Purge() int {
	return rl.limiters.PurgeExpired()
}
