package redis

import (
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
)

// Breaker states, numbered as in gobreaker.
const (
	StateClosed   = int(gobreaker.StateClosed)   // requests pass through
	StateHalfOpen = int(gobreaker.StateHalfOpen) // one probe allowed through
	StateOpen     = int(gobreaker.StateOpen)     // requests rejected immediately
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig tunes the circuit breaker around Redis calls.
type BreakerConfig struct {
	MaxFailures  uint32        // consecutive failures before opening (default 5)
	ResetTimeout time.Duration // open period before a half-open probe (default 10s)

	// OnStateChange receives every transition. It runs while the breaker
	// holds its lock and must not call back into the breaker.
	OnStateChange func(from, to int)
}

// Breaker guards Redis calls. A redis.Nil reply counts as success.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker named name.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 10 * time.Second
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, goredis.Nil)
		},
	}
	if cfg.OnStateChange != nil {
		st.OnStateChange = func(_ string, from, to gobreaker.State) {
			cfg.OnStateChange(int(from), int(to))
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// State returns the current state as one of the State constants.
func (b *Breaker) State() int { return int(b.cb.State()) }

func stateName(s int) string {
	return gobreaker.State(s).String()
}
