package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker is refusing calls.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Breaker fails fast once a dependency has failed failureThreshold times in a row,
// then lets a probe through after cooldown.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
	onStateChange    func(from, to State)
}

// New creates a closed breaker.
func New(failureThreshold, successThreshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: max(failureThreshold, 1),
		successThreshold: max(successThreshold, 1),
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// OnStateChange registers a callback for state transitions. It runs with the
// breaker's lock released.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	b.onStateChange = fn
	b.mu.Unlock()
}

// Execute runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	err := fn()
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// Allow reports whether a call may proceed, moving open -> half-open after cooldown.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	if b.state != StateOpen {
		b.mu.Unlock()
		return true
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		b.mu.Unlock()
		return false
	}
	from := b.transition(StateHalfOpen)
	b.mu.Unlock()
	b.notify(from, StateHalfOpen)
	return true
}

// RecordSuccess closes a half-open breaker once enough probes succeed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			from := b.transition(StateClosed)
			b.mu.Unlock()
			b.notify(from, StateClosed)
			return
		}
	case StateClosed:
		b.failures = 0
	}
	b.mu.Unlock()
}

// RecordFailure trips the breaker open.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures < b.failureThreshold {
			b.mu.Unlock()
			return
		}
	case StateOpen:
		b.mu.Unlock()
		return
	}
	from := b.transition(StateOpen)
	b.openedAt = b.now()
	b.mu.Unlock()
	b.notify(from, StateOpen)
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) State {
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	return from
}

func (b *Breaker) notify(from, to State) {
	if from == to {
		return
	}
	b.mu.Lock()
	fn := b.onStateChange
	b.mu.Unlock()
	if fn != nil {
		fn(from, to)
	}
}
