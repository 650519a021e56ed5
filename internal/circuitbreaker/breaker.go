// Package circuitbreaker stops botdesk callers from hammering an upstream that
// keeps failing. Each upstream gets its own circuit, keyed by name; the MCP
// bridge keys its calls to the botdesk API as "botdesk_api".
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrOpen means the upstream failed too often and is being given time to recover.
var ErrOpen = errors.New("circuitbreaker: circuit open")

// State is where a circuit sits between healthy and tripped.
type State int

const (
	StateClosed   State = iota // calls go through
	StateOpen                  // calls fail fast with ErrOpen
	StateHalfOpen              // one trial call is in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "botdesk",
	Subsystem: "circuitbreaker",
	Name:      "state_transitions_total",
	Help:      "Upstream circuit state changes.",
}, []string{"key", "from_state", "to_state"})

func init() {
	prometheus.MustRegister(transitionsTotal)
}

type circuit struct {
	state       State
	failures    int
	lastFailure time.Time
}

// Breaker holds one circuit per upstream key. A circuit opens after threshold
// failures in a row and lets a single trial call through once openDuration
// has passed since the last failure.
type Breaker struct {
	mu           sync.Mutex
	circuits     map[string]*circuit
	threshold    int
	openDuration time.Duration
	now          func() time.Time
	onTransition func(key string, from, to State)
}

// New returns a Breaker. Non-positive arguments fall back to 5 failures and 30s.
func New(threshold int, openDuration time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openDuration <= 0 {
		openDuration = 30 * time.Second
	}
	return &Breaker{
		circuits:     make(map[string]*circuit),
		threshold:    threshold,
		openDuration: openDuration,
		now:          time.Now,
	}
}

// WithClock swaps time.Now, for tests.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
	return b
}

// OnTransition registers fn to hear about state changes. fn runs under the
// breaker's lock, so it must not call back into the Breaker.
func (b *Breaker) OnTransition(fn func(key string, from, to State)) {
	b.mu.Lock()
	b.onTransition = fn
	b.mu.Unlock()
}

// Allow reports whether a call to key may go out now. An open circuit whose
// cool-down has elapsed moves to half-open and admits this one call.
func (b *Breaker) Allow(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.circuits[key]
	if !ok {
		return true
	}

	switch e.state {
	case StateOpen:
		if b.now().Sub(e.lastFailure) >= b.openDuration {
			b.transition(e, key, StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess clears the failure streak. A successful trial call closes the circuit.
func (b *Breaker) RecordSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.circuits[key]
	if !ok {
		return
	}
	if e.state == StateHalfOpen {
		b.transition(e, key, StateClosed)
	}
	e.failures = 0
}

// RecordFailure extends the failure streak. A failed trial call reopens the
// circuit at once; a closed one opens when the streak reaches the threshold.
func (b *Breaker) RecordFailure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.circuits[key]
	if !ok {
		e = &circuit{state: StateClosed}
		b.circuits[key] = e
	}

	e.failures++
	e.lastFailure = b.now()

	switch {
	case e.state == StateHalfOpen:
		b.transition(e, key, StateOpen)
	case e.state == StateClosed && e.failures >= b.threshold:
		b.transition(e, key, StateOpen)
	}
}

// Do wraps one upstream call. It returns ErrOpen without calling fn while the
// circuit is open. failed picks which errors are the upstream's fault (for
// the botdesk API: transport errors and 5xx); nil means every error counts.
func (b *Breaker) Do(key string, fn func() error, failed func(error) bool) error {
	if !b.Allow(key) {
		return ErrOpen
	}
	err := fn()
	if err != nil && (failed == nil || failed(err)) {
		b.RecordFailure(key)
	} else {
		b.RecordSuccess(key)
	}
	return err
}

// State reports the circuit for key. Keys never seen are closed.
func (b *Breaker) State(key string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.circuits[key]
	if !ok {
		return StateClosed
	}
	return e.state
}

// transition requires b.mu.
func (b *Breaker) transition(e *circuit, key string, to State) {
	from := e.state
	if from == to {
		return
	}
	e.state = to
	transitionsTotal.WithLabelValues(key, from.String(), to.String()).Inc()
	if b.onTransition != nil {
		b.onTransition(key, from, to)
	}
}
