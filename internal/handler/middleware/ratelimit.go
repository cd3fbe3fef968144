package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
)

// IPRateLimiter keeps one token bucket per client IP. Buckets idle for
// longer than idleTTL are evicted on the next sweep.
type IPRateLimiter struct {
	name    string
	limit   rate.Limit
	burst   int
	metrics *metrics.Collector

	mu       sync.Mutex
	limiters map[string]*visitor
	lastGC   time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const idleTTL = 10 * time.Minute

func NewIPRateLimiter(name string, limit rate.Limit, burst int, m *metrics.Collector) *IPRateLimiter {
	return &IPRateLimiter{
		name:     name,
		limit:    limit,
		burst:    burst,
		metrics:  m,
		limiters: make(map[string]*visitor),
		lastGC:   time.Now(),
	}
}

// PerMinute converts a per-minute allowance into a rate.Limit.
func PerMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

func (l *IPRateLimiter) limiter(ip string) *rate.Limiter {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > idleTTL {
		for k, v := range l.limiters {
			if now.Sub(v.lastSeen) > idleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *IPRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiter(c.ClientIP()).Allow() {
			l.metrics.RateLimited.WithLabelValues(l.name).Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
