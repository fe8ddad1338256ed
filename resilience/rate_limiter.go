package resilience

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrRateLimited is returned by Execute when no token is available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies the limiter in logs.
	Name string
	// Rate is the number of tokens added per second.
	Rate float64
	// Burst is the bucket size.
	Burst int
	// OnLimit is called when a request is refused.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10,
		Burst: 20,
	}
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	if c.Rate <= 0 {
		c.Rate = DefaultRateLimiterConfig(c.Name).Rate
	}
	if c.Burst <= 0 {
		c.Burst = int(math.Max(1, c.Rate))
	}
	return c
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return newRateLimiter(config.withDefaults(), time.Now)
}

func newRateLimiter(config RateLimiterConfig, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		config: config,
		now:    now,
		tokens: float64(config.Burst),
		last:   now(),
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	ok, _ := rl.Take()
	return ok
}

// Take takes a token if one is available. When it is not, it returns the
// time until the next token arrives.
func (rl *RateLimiter) Take() (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true, 0
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	wait := time.Duration((1 - rl.tokens) / rl.config.Rate * float64(time.Second))
	return false, wait
}

// Execute runs fn if a token is available.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// Tokens returns the current number of tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens = math.Min(float64(rl.config.Burst), rl.tokens+now.Sub(rl.last).Seconds()*rl.config.Rate)
	rl.last = now
}

// KeyedRateLimiter keeps one token bucket per key, typically a client
// address.
type KeyedRateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*keyedBucket
}

type keyedBucket struct {
	limiter *RateLimiter
	seen    time.Time
}

// NewKeyedRateLimiter creates an empty keyed limiter.
func NewKeyedRateLimiter(config RateLimiterConfig) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		config:  config.withDefaults(),
		now:     time.Now,
		buckets: make(map[string]*keyedBucket),
	}
}

// Take takes a token from key's bucket.
func (k *KeyedRateLimiter) Take(key string) (bool, time.Duration) {
	k.mu.Lock()
	b, ok := k.buckets[key]
	if !ok {
		b = &keyedBucket{limiter: newRateLimiter(k.config, k.now)}
		k.buckets[key] = b
	}
	b.seen = k.now()
	k.mu.Unlock()
	return b.limiter.Take()
}

// Prune drops buckets not used for longer than maxIdle and returns how
// many were removed.
func (k *KeyedRateLimiter) Prune(maxIdle time.Duration) int {
	cutoff := k.now().Add(-maxIdle)
	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for key, b := range k.buckets {
		if b.seen.Before(cutoff) {
			delete(k.buckets, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
