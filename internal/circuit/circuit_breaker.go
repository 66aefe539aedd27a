// Package circuit implements a closed/open/half-open circuit breaker used
// to isolate the venue trading path from repeated faults.
package circuit

import (
	"log/slog"
	"sync"
	"time"
)

// State is one of Closed, Open, HalfOpen.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Breaker.
type Config struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// DefaultConfig returns the market-maker's default breaker tuning: five
// consecutive faults trip it, two consecutive successes in half-open
// close it again, and it waits 30s before probing.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Breaker is a thread-safe circuit breaker gating calls to a venue adapter
// or trading transport.
type Breaker struct {
	name string
	mu   sync.RWMutex

	state        State
	failureCount int
	successCount int
	lastFailure  time.Time

	failureThreshold int
	successThreshold int
	timeout          time.Duration

	log *slog.Logger
}

// New creates a Breaker in the Closed state.
func New(cfg Config, log *slog.Logger) *Breaker {
	if log == nil {
		log = slog.Default()
	}
	return &Breaker{
		name:             cfg.Name,
		state:            Closed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		log:              log,
	}
}

// Allow reports whether a call should proceed given the breaker's current
// state, transitioning Open -> HalfOpen once the timeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true

	case Open:
		if time.Since(b.lastFailure) > b.timeout {
			b.state = HalfOpen
			b.successCount = 0
			b.log.Info("circuit breaker half-open", slog.String("name", b.name))
			return true
		}
		return false

	case HalfOpen:
		return true

	default:
		return false
	}
}

// RecordSuccess reports a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failureCount = 0

	case HalfOpen:
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = Closed
			b.failureCount = 0
			b.successCount = 0
			b.log.Info("circuit breaker closed", slog.String("name", b.name))
		}
	}
}

// RecordFailure reports a failed call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()

	switch b.state {
	case Closed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.state = Open
			b.log.Warn("circuit breaker open",
				slog.String("name", b.name), slog.Int("failures", b.failureCount))
		}

	case HalfOpen:
		b.state = Open
		b.successCount = 0
		b.log.Warn("circuit breaker re-opened", slog.String("name", b.name))
	}
}

// State returns the current state for metrics/monitoring.
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset forces the breaker back to Closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = Closed
	b.failureCount = 0
	b.successCount = 0
	b.log.Info("circuit breaker reset", slog.String("name", b.name))
}
