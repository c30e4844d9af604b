// Package circuitbreaker guards flaky backends: after a run of
// consecutive failures, calls are rejected immediately until a reset
// timeout elapses, then a single probe is allowed through.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State of the breaker.
type State int

const (
	Closed   State = iota // normal operation, calls pass through
	Open                  // failing, calls rejected immediately
	HalfOpen              // probing recovery, one call allowed
)

// ErrCircuitOpen is returned without invoking the wrapped call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker opens after maxFailures consecutive errors and probes for
// recovery after resetTimeout.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	openedAt     time.Time
	probing      bool
}

// New creates a Breaker.
func New(maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		state:        Closed,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
}

// Execute runs fn unless the circuit is open. While half-open, only
// one probe runs at a time; concurrent calls see ErrCircuitOpen.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case Open:
		if time.Since(b.openedAt) <= b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = HalfOpen
		b.probing = true
	case HalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	if err != nil {
		b.failures++
		b.openedAt = time.Now()
		if b.failures >= b.maxFailures || b.state == HalfOpen {
			b.state = Open
		}
		return err
	}

	b.failures = 0
	b.state = Closed
	return nil
}

// GetState returns the current state.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
