// Package backoff computes reconnect delays for transports that retry
// after a disconnect.
package backoff

import "time"

// Policy computes an exponential backoff capped at Max, doubling from
// Base on each retry.
type Policy struct {
	Base time.Duration
	Max  time.Duration
}

// Default mirrors the teacher's 1s..60s exponential policy.
func Default() Policy {
	return Policy{Base: 1 * time.Second, Max: 60 * time.Second}
}

// Delay returns the backoff duration for the given retry count (0-based).
// Negative retry counts return Base.
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		return p.Base
	}
	if retryCount > 30 {
		return p.Max
	}
	delay := p.Base * time.Duration(1<<retryCount)
	if delay > p.Max || delay <= 0 {
		return p.Max
	}
	return delay
}
