// Package ratelimit provides per-key outbound rate limiting, used by
// the transport layer to pace requests per entry host.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
}

// Limiter implements per-key token-bucket rate limiting. Unlike an
// inbound-abuse limiter, it tracks no violation counts or bans: a
// client pacing its own outbound requests has no need to penalize the
// hosts it calls, only to avoid hammering them.
type Limiter struct {
	config   Config
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	mu       sync.Mutex
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewLimiter creates a new rate limiter. A RequestsPerSecond of 0
// disables limiting entirely (Allow always returns true).
func NewLimiter(cfg Config) *Limiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	l := &Limiter{
		config:   cfg,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go l.cleanup()

	return l
}

// Allow reports whether a request keyed by key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if l.config.RequestsPerSecond <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rl, exists := l.limiters[key]
	if !exists {
		rl = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize)
		l.limiters[key] = rl
	}
	l.lastSeen[key] = time.Now()

	return rl.Allow()
}

// Reset clears limiter state for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
	delete(l.lastSeen, key)
}

// Stats reports current limiter occupancy.
type Stats struct {
	ActiveLimiters int
}

// Stats returns limiter statistics.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{ActiveLimiters: len(l.limiters)}
}

// Stop stops the limiter's cleanup goroutine.
func (l *Limiter) Stop() {
	close(l.stopCh)
	<-l.doneCh
}

// cleanup periodically evicts limiters for keys gone quiet.
func (l *Limiter) cleanup() {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.doCleanup()
		}
	}
}

func (l *Limiter) doCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, seen := range l.lastSeen {
		if now.Sub(seen) > l.config.CleanupInterval*2 {
			delete(l.limiters, key)
			delete(l.lastSeen, key)
		}
	}
}
