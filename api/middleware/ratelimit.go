package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/jobsift/config"
	"github.com/use-agent/jobsift/models"
	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long an identity's bucket survives without a
	// request before it is eligible for eviction.
	limiterIdleTTL = time.Hour

	// limiterSweepEvery bounds how often eviction runs.
	limiterSweepEvery = 5 * time.Minute
)

// RateLimit returns per-identity token-bucket limiting for the search
// endpoint. The identity is the API key when auth ran, the client IP
// otherwise. A search kicks off a whole paced scrape run, so the sustained
// rate is configured in runs, not requests.
//
// Idle buckets are swept lazily on access, the same scheme the engine's
// domain memory uses, so serve mode carries no background goroutine.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	lim := &identityLimiters{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}

	return func(c *gin.Context) {
		identity := c.ClientIP()
		if key, ok := c.Get("api_key"); ok {
			identity = key.(string)
		}

		if !lim.allow(identity) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded for this key",
				},
			})
			return
		}
		c.Next()
	}
}

// bucket pairs an identity's limiter with its last use, for eviction.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// identityLimiters holds one token bucket per caller identity.
type identityLimiters struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rps       rate.Limit
	burst     int
	lastSweep time.Time
}

// allow takes one token from the identity's bucket, creating it on first
// use and sweeping idle buckets at most once per limiterSweepEvery.
func (l *identityLimiters) allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		for id, b := range l.buckets {
			if now.Sub(b.lastSeen) > limiterIdleTTL {
				delete(l.buckets, id)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[identity] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}
