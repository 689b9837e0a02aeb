package cache

import (
	"sync"
	"time"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

type CircuitBreakerConfig struct {
	MaxFailures      int
	Timeout          time.Duration
	HalfOpenMaxCalls int
}

func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker guards a cache backend. After MaxFailures consecutive
// failures it rejects calls with ErrCacheDown for Timeout. It then admits
// up to HalfOpenMaxCalls trial calls: that many successes close it again
// and a single failure reopens it.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	trials    int
	successes int
	openedAt  time.Time
}

func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	cfg := *DefaultCircuitBreakerConfig()
	if config != nil {
		if config.MaxFailures > 0 {
			cfg.MaxFailures = config.MaxFailures
		}
		if config.Timeout > 0 {
			cfg.Timeout = config.Timeout
		}
		if config.HalfOpenMaxCalls > 0 {
			cfg.HalfOpenMaxCalls = config.HalfOpenMaxCalls
		}
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker rejects the call. Errors matched by
// one of the ignore funcs, such as ErrCacheMiss, are returned to the caller
// but do not count as failures.
func (cb *CircuitBreaker) Execute(fn func() error, ignore ...func(error) bool) error {
	if !cb.acquire() {
		return ErrCacheDown
	}

	err := fn()
	ok := err == nil
	for _, match := range ignore {
		if !ok && match(err) {
			ok = true
		}
	}
	cb.record(ok)
	return err
}

func (cb *CircuitBreaker) acquire() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
			return false
		}
		cb.state = BreakerHalfOpen
		cb.trials = 0
		cb.successes = 0
		fallthrough
	case BreakerHalfOpen:
		if cb.trials >= cb.cfg.HalfOpenMaxCalls {
			return false
		}
		cb.trials++
	}
	return true
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if ok {
		switch cb.state {
		case BreakerClosed:
			cb.failures = 0
		case BreakerHalfOpen:
			cb.successes++
			if cb.successes >= cb.cfg.HalfOpenMaxCalls {
				cb.state = BreakerClosed
				cb.failures = 0
			}
		}
		return
	}

	cb.failures++
	if cb.state == BreakerHalfOpen || (cb.state == BreakerClosed && cb.failures >= cb.cfg.MaxFailures) {
		cb.state = BreakerOpen
		cb.openedAt = cb.now()
	}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := map[string]interface{}{
		"state":    cb.state.String(),
		"failures": cb.failures,
	}
	if cb.state != BreakerClosed {
		stats["opened_at"] = cb.openedAt.Unix()
	}
	return stats
}
