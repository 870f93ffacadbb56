package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements rate limiting for API endpoints. Besides the
// usual per-IP limit it carries a per-member limit for balance-mutating
// endpoints, since a runaway POS integration hammering one member would
// otherwise queue up on that member's row lock.
type RateLimiter struct {
	ipLimiters        map[string]*rate.Limiter
	memberLimiters    map[string]*rate.Limiter
	ipMutex           sync.Mutex
	memberMutex       sync.Mutex
	ipLimiterRate     rate.Limit
	memberLimiterRate rate.Limit
	ipBurst           int
	memberBurst       int
	cleanupTicker     *time.Ticker
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(ipRequestsPerSecond, memberRequestsPerSecond float64, ipBurst, memberBurst int) *RateLimiter {
	limiter := &RateLimiter{
		ipLimiters:        make(map[string]*rate.Limiter),
		memberLimiters:    make(map[string]*rate.Limiter),
		ipLimiterRate:     rate.Limit(ipRequestsPerSecond),
		memberLimiterRate: rate.Limit(memberRequestsPerSecond),
		ipBurst:           ipBurst,
		memberBurst:       memberBurst,
		cleanupTicker:     time.NewTicker(5 * time.Minute),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup periodically removes old limiters to prevent memory leaks
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.ipMutex.Lock()
		rl.ipLimiters = make(map[string]*rate.Limiter)
		rl.ipMutex.Unlock()

		rl.memberMutex.Lock()
		rl.memberLimiters = make(map[string]*rate.Limiter)
		rl.memberMutex.Unlock()
	}
}

// Stop stops the rate limiter cleanup
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.ipMutex.Lock()
	defer rl.ipMutex.Unlock()
	limiter, exists := rl.ipLimiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.ipLimiterRate, rl.ipBurst)
		rl.ipLimiters[ip] = limiter
	}
	return limiter
}

func (rl *RateLimiter) getMemberLimiter(memberID string) *rate.Limiter {
	rl.memberMutex.Lock()
	defer rl.memberMutex.Unlock()
	limiter, exists := rl.memberLimiters[memberID]
	if !exists {
		limiter = rate.NewLimiter(rl.memberLimiterRate, rl.memberBurst)
		rl.memberLimiters[memberID] = limiter
	}
	return limiter
}

// IPRateLimiterMiddleware limits requests per client IP
func (rl *RateLimiter) IPRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getIPLimiter(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// MemberRateLimiterMiddleware limits balance mutations per member id,
// keyed on the :id route parameter
func (rl *RateLimiter) MemberRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := c.Param("id")
		if memberID != "" && !rl.getMemberLimiter(memberID).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests for this member"})
			c.Abort()
			return
		}
		c.Next()
	}
}
