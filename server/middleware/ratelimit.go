package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/resilience"
)

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second per client.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the number of requests a client may send at once.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// IdleTTL is how long an idle client's bucket is kept.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
	// KeyFunc extracts the client key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// RateLimiter is a Gin middleware backed by a keyed token bucket.
type RateLimiter struct {
	limiter *resilience.KeyedRateLimiter
	keyFunc func(*gin.Context) string
	idleTTL time.Duration
}

// NewRateLimiter creates a limiter. Start pruning with Run.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIPKey
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		limiter: resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
			Name:  "http",
			Rate:  cfg.Rate,
			Burst: cfg.Burst,
		}),
		keyFunc: cfg.KeyFunc,
		idleTTL: cfg.IdleTTL,
	}
}

// Handler returns the Gin middleware. Refused requests get 429 with a
// Retry-After header.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := rl.limiter.Take(rl.keyFunc(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			status, body := errors.ResponseFor(errors.RateLimited(wait))
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Next()
	}
}

// Run prunes idle buckets until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.limiter.Prune(rl.idleTTL)
		}
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	return rl.limiter.Len()
}

// ClientIPKey keys requests by client IP.
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}
