package resilience

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

var (
	ErrCircuitOpen     = apperr.Sentinel(apperr.KindTransient, "circuit breaker is open")
	ErrTooManyRequests = apperr.Sentinel(apperr.KindTransient, "too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing
	OpenTimeout time.Duration
	// HalfOpenProbes is the number of concurrent probes allowed while half-open
	HalfOpenProbes uint32
	// OnStateChange is called with the breaker lock released
	OnStateChange func(name string, from State, to State)
	// Now is the clock, overridable in tests
	Now func() time.Time
}

// Counts holds the statistics for the current state
type Counts struct {
	Requests            uint32
	Successes           uint32
	Failures            uint32
	ConsecutiveFailures uint32
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	inFlight uint32
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	if settings.HalfOpenProbes == 0 {
		settings.HalfOpenProbes = 1
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving open to half-open once the
// timeout has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	state, change := b.advance()
	b.mu.Unlock()
	b.notify(change)
	return state
}

// Counts returns a copy of the counts for the current state
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Reset closes the breaker and clears its counts
func (b *Breaker) Reset() {
	b.mu.Lock()
	change := b.transition(StateClosed)
	b.counts = Counts{}
	b.mu.Unlock()
	b.notify(change)
}

// Do runs fn if the breaker admits it and records the outcome
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			b.record(false)
			panic(r)
		}
		b.record(err == nil)
	}()

	err = fn()
	return err
}

// Execute runs fn through b and returns its result
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var out T
	err := b.Do(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

type stateChange struct {
	from, to State
	changed  bool
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	state, change := b.advance()
	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if b.inFlight >= b.settings.HalfOpenProbes {
			err = ErrTooManyRequests
		}
	}
	if err == nil {
		b.counts.Requests++
		b.inFlight++
	}
	b.mu.Unlock()

	b.notify(change)
	return err
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	if b.inFlight > 0 {
		b.inFlight--
	}

	var change stateChange
	if success {
		b.counts.Successes++
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen {
			change = b.transition(StateClosed)
		}
	} else {
		b.counts.Failures++
		b.counts.ConsecutiveFailures++
		switch {
		case b.state == StateHalfOpen:
			change = b.transition(StateOpen)
		case b.state == StateClosed && b.counts.ConsecutiveFailures >= b.settings.FailureThreshold:
			change = b.transition(StateOpen)
		}
	}
	b.mu.Unlock()

	b.notify(change)
}

// advance must be called with mu held
func (b *Breaker) advance() (State, stateChange) {
	if b.state == StateOpen && b.settings.Now().Sub(b.openedAt) >= b.settings.OpenTimeout {
		return StateHalfOpen, b.transition(StateHalfOpen)
	}
	return b.state, stateChange{}
}

// transition must be called with mu held
func (b *Breaker) transition(to State) stateChange {
	if b.state == to {
		return stateChange{}
	}
	from := b.state
	b.state = to
	b.counts = Counts{}
	b.inFlight = 0
	if to == StateOpen {
		b.openedAt = b.settings.Now()
	}
	return stateChange{from: from, to: to, changed: true}
}

func (b *Breaker) notify(c stateChange) {
	if c.changed && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, c.from, c.to)
	}
}
