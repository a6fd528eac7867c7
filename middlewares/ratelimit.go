package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the configuration for the rate limiter
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL is how long an idle client's limiter is kept.
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterData holds one limiter per client IP.
type rateLimiterData struct {
	config    RateLimiterConfig
	clients   map[string]*clientLimiter
	lastSweep time.Time
	mu        sync.Mutex
	now       func() time.Time
}

func (d *rateLimiterData) allow(ip string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	client, ok := d.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(d.config.RequestsPerSecond), d.config.Burst)}
		d.clients[ip] = client
	}
	client.lastSeen = now

	if now.Sub(d.lastSweep) >= d.config.IdleTTL {
		d.sweep(now)
	}
	return client.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for longer than IdleTTL. Callers hold mu.
func (d *rateLimiterData) sweep(now time.Time) {
	for key, other := range d.clients {
		if now.Sub(other.lastSeen) > d.config.IdleTTL {
			delete(d.clients, key)
		}
	}
	d.lastSweep = now
}

func newRateLimiterData(config RateLimiterConfig, now func() time.Time) *rateLimiterData {
	return &rateLimiterData{config: config, clients: map[string]*clientLimiter{}, lastSweep: now(), now: now}
}

// NewRateLimiterMiddleware creates a new rate limiter middleware
func NewRateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	data := newRateLimiterData(config, time.Now)

	return func(c *gin.Context) {
		if !data.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
