// ABOUTME: Three-state circuit breaker gating calls to failing dependencies
// ABOUTME: Closed counts failures, open rejects until cooldown, half-open probes once

package breaker

import (
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed allows calls through normally.
	StateClosed State = iota

	// StateOpen rejects all calls immediately.
	StateOpen

	// StateHalfOpen allows a single probe call to test recovery.
	StateHalfOpen
)

// String returns the human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Default thresholds.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second
)

// Options configures a Breaker. Zero values fall back to the defaults.
type Options struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state before the circuit opens.
	FailureThreshold int

	// Cooldown is how long the circuit stays open before the next
	// availability check is allowed to probe.
	Cooldown time.Duration
}

// Breaker is a three-state circuit breaker.
//
// Thread Safety: safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	probeInFlight        bool
	probeStarted         time.Time
	lastFailure          time.Time

	failureThreshold int
	cooldown         time.Duration

	now func() time.Time // overridden in tests
}

// New creates a closed breaker with the given options.
func New(opts Options) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	return &Breaker{
		failureThreshold: opts.FailureThreshold,
		cooldown:         opts.Cooldown,
		now:              time.Now,
	}
}

// IsOpen reports whether calls should be rejected right now.
//
// In the open state, once the cooldown has elapsed the breaker transitions
// to half-open and this check returns false: the caller performing it owns
// the single permitted probe. Further checks while that probe is
// outstanding return true. A probe whose owner never reports an outcome is
// reclaimed after a further cooldown, so an abandoned probe cannot wedge
// the circuit half-open forever.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false

	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.cooldown {
			b.state = StateHalfOpen
			b.consecutiveSuccesses = 0
			b.probeInFlight = true
			b.probeStarted = b.now()
			return false
		}
		return true

	case StateHalfOpen:
		if b.probeInFlight && b.now().Sub(b.probeStarted) < b.cooldown {
			return true
		}
		b.probeInFlight = true
		b.probeStarted = b.now()
		return false

	default:
		return true
	}
}

// RecordSuccess reports a successful call. In the closed state it resets
// the failure counter; in half-open it closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0

	case StateHalfOpen:
		b.consecutiveSuccesses++
		b.state = StateClosed
		b.consecutiveFailures = 0
		b.probeInFlight = false
	}
}

// RecordFailure reports a failed call. Reaching the failure threshold in
// the closed state opens the circuit; any failure in half-open reopens it
// and restarts the cooldown clock.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		b.consecutiveFailures++
		b.consecutiveSuccesses = 0
		if b.consecutiveFailures >= b.failureThreshold {
			b.state = StateOpen
		}

	case StateHalfOpen:
		b.state = StateOpen
		b.probeInFlight = false
		b.consecutiveSuccesses = 0
	}
}

// Reset forces the breaker back to closed with all counters cleared.
// Administrative use only.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.probeInFlight = false
	b.probeStarted = time.Time{}
	b.lastFailure = time.Time{}
}

// Metrics is a snapshot of breaker state for diagnostics.
type Metrics struct {
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	TimeSinceLastFailure time.Duration
}

// Metrics returns a snapshot of the breaker's current state.
func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := Metrics{
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
	}
	if !b.lastFailure.IsZero() {
		m.TimeSinceLastFailure = b.now().Sub(b.lastFailure)
	}
	return m
}
