package middleware

import (
	"sync"
	"time"

	"siteworks/internal/config"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// breaker opens after Threshold consecutive failures and lets a single
// probe through once Cooldown has passed. A failed probe reopens it.
type breaker struct {
	mu       sync.Mutex
	cfg      config.CircuitBreakerConfig
	state    breakerState
	failures int
	openedAt time.Time
	now      func() time.Time
}

func newBreaker(cfg config.CircuitBreakerConfig) *breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = config.DefaultBreakerThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = config.DefaultBreakerCooldown
	}
	return &breaker{cfg: cfg, now: time.Now}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.state == breakerClosed:
		return true
	case b.state == breakerHalfOpen:
		// probe still in flight
		return false
	case b.now().Sub(b.openedAt) < b.cfg.Cooldown:
		return false
	}
	b.state = breakerHalfOpen
	return true
}

// record feeds one request outcome into the breaker
func (b *breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !failed {
		b.failures = 0
		b.state = breakerClosed
		return
	}
	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.cfg.Threshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
