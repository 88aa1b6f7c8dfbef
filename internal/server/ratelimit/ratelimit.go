// Package ratelimit limits HTTP requests per client and endpoint with
// token buckets from golang.org/x/time/rate.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter    *rate.Limiter
	limit      int
	burst      int
	lastAccess time.Time
}

// Limiter manages rate limiting for multiple clients.
type Limiter struct {
	config    Config
	whitelist map[string]bool
	blacklist map[string]bool

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce    sync.Once
	cleanupStop chan struct{}
}

// NewLimiter creates a new rate limiter with the given configuration.
// A nil config uses DefaultConfig.
func NewLimiter(config *Config) *Limiter {
	cfg := DefaultConfig()
	if config != nil {
		cfg = config.withDefaults()
	}

	limiter := &Limiter{
		config:    cfg,
		whitelist: toSet(cfg.Whitelist),
		blacklist: toSet(cfg.Blacklist),
		buckets:   make(map[string]*bucket),
	}

	if cfg.Enabled && cfg.CleanupInterval > 0 {
		limiter.cleanupStop = make(chan struct{})
		go limiter.cleanup(cfg.CleanupInterval)
	}

	return limiter
}

// Allow checks if a request from the given client is allowed for the specified endpoint.
// Returns true if allowed, false if rate limited, along with rate limit information.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	endpointConfig := MatchEndpoint(endpoint, method, l.config.Endpoints)
	key := clientID + ":*"
	if endpointConfig == nil {
		endpointConfig = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	} else {
		// Key on the configured pattern so varying ids share one bucket
		key = clientID + ":" + endpointConfig.Path + ":" + method
	}

	if endpointConfig.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	now := time.Now()
	b := l.getBucket(key, endpointConfig, now)
	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	info := Info{
		Allowed:   allowed,
		Limit:     b.limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetTime: now.Add(refillDuration(float64(b.burst)-tokens, b.limiter.Limit())),
	}
	if !allowed {
		info.RetryAfter = refillDuration(1-tokens, b.limiter.Limit())
	}
	return allowed, info
}

// getBucket gets or creates the bucket for key and records the access.
func (l *Limiter) getBucket(key string, cfg *EndpointConfig, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.Limit
		}
		window := cfg.Window
		if window <= 0 {
			window = l.config.DefaultWindow
		}
		every := rate.Every(window / time.Duration(cfg.Limit))
		b = &bucket{
			limiter: rate.NewLimiter(every, burst),
			limit:   cfg.Limit,
			burst:   burst,
		}
		l.buckets[key] = b
	}
	b.lastAccess = now
	return b
}

// refillDuration returns how long it takes to accumulate missing tokens.
func refillDuration(missing float64, r rate.Limit) time.Duration {
	if missing <= 0 || r <= 0 {
		return 0
	}
	return time.Duration(missing / float64(r) * float64(time.Second))
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanupBuckets(time.Now().Add(-l.config.IdleTTL))
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets removes buckets not accessed since cutoff.
func (l *Limiter) cleanupBuckets(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// size returns the number of tracked buckets.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
