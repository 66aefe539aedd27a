// Package ratelimit provides a token-bucket limiter for gating outbound
// trading calls. Unlike the teacher's package-level singletons, limiters
// here are owned by whatever constructs the trading transport so that
// each venue connection gets its own independent buckets.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a thread-safe token bucket.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// New creates a limiter with the given burst size and refill rate.
func New(burst int, perSecond float64) *Limiter {
	return &Limiter{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: perSecond,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available.
func (l *Limiter) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	for l.tokens < 1 {
		waitTime := time.Duration(float64(time.Second) / l.refillRate)
		l.mu.Unlock()
		time.Sleep(waitTime)
		l.mu.Lock()
		l.refill()
	}
	l.tokens--
}

// TryAcquire attempts to acquire a token without blocking.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// refill must be called with the mutex held.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now
}

// Buckets groups the two independently-throttled operation classes a
// trading transport issues: order placement and order cancellation.
type Buckets struct {
	Place  *Limiter
	Cancel *Limiter
}

// NewBuckets builds the buckets from configured per-second/burst limits.
func NewBuckets(placePerSecond, cancelPerSecond float64, placeBurst, cancelBurst int) *Buckets {
	return &Buckets{
		Place:  New(placeBurst, placePerSecond),
		Cancel: New(cancelBurst, cancelPerSecond),
	}
}
