// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/creatorclaim/backend/internal/config"
)

const visitorIdleTTL = 3 * time.Minute

// ipLimiter throttles requests per client IP using a token bucket per
// visitor. Idle visitors are evicted so the map stays bounded by the set of
// recently active addresses.
type ipLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(r rate.Limit, burst int) *ipLimiter {
	l := &ipLimiter{
		rate:     r,
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
	go l.evictIdle()
	return l
}

func (l *ipLimiter) evictIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > visitorIdleTTL {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// perMinute spreads n requests evenly over a minute. A non-positive n
// disables the limit.
func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

func perSecond(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Limit(n)
}

// GeneralRateLimit throttles all API traffic per client IP.
func GeneralRateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	return newIPLimiter(perSecond(cfg.GeneralPerSecond), cfg.GeneralBurst).middleware()
}

// AuthRateLimit throttles token issuance, which is the cheapest endpoint to
// hammer with signature-guessing attempts.
func AuthRateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	return newIPLimiter(perMinute(cfg.AuthPerMinute), cfg.AuthPerMinute).middleware()
}

// UploadRateLimit throttles metadata uploads.
func UploadRateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	return newIPLimiter(perMinute(cfg.UploadPerMinute), cfg.UploadPerMinute).middleware()
}
