// Package circuitbreaker stops calling a failing dependency for a cooldown
// period after a run of consecutive failures.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smsgate/internal/metrics"

	"github.com/sirupsen/logrus"
)

// State represents the state of a circuit breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

const defaultHalfOpenProbes = 1

// CircuitBreaker counts consecutive failures of the calls it wraps. After
// maxFailures it opens and rejects calls until cooldown has passed, then lets
// probe calls through; one probe failure reopens it.
type CircuitBreaker struct {
	name           string
	maxFailures    uint32
	cooldown       time.Duration
	halfOpenProbes uint32
	isFailure      func(error) bool
	now            func() time.Time

	mu            sync.Mutex
	state         State
	failures      uint32
	openedAt      time.Time
	probesInHalf  uint32
	successInHalf uint32
	requests      uint64
	rejected      uint64

	logger *logrus.Logger
}

// New creates a breaker where every non-nil error counts as a failure
func New(name string, maxFailures uint32, cooldown time.Duration, logger *logrus.Logger) *CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	cb := &CircuitBreaker{
		name:           name,
		maxFailures:    maxFailures,
		cooldown:       cooldown,
		halfOpenProbes: defaultHalfOpenProbes,
		isFailure:      func(err error) bool { return err != nil },
		now:            time.Now,
		state:          StateClosed,
		logger:         logger,
	}
	cb.publishState()
	return cb
}

// WithFailurePredicate limits which errors count toward tripping. Errors the
// predicate rejects are returned to the caller but treated as successes.
func (cb *CircuitBreaker) WithFailurePredicate(isFailure func(error) bool) *CircuitBreaker {
	cb.isFailure = isFailure
	return cb
}

// WithHalfOpenProbes sets how many successful probes close the circuit
func (cb *CircuitBreaker) WithHalfOpenProbes(n uint32) *CircuitBreaker {
	if n > 0 {
		cb.halfOpenProbes = n
	}
	return cb
}

// Execute runs fn unless the circuit is open, in which case it returns an
// *OpenError without calling fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil && cb.isFailure(err) {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	cb.advanceLocked()

	switch cb.state {
	case StateOpen:
		cb.rejected++
		return &OpenError{Name: cb.name, RetryAfter: cb.openedAt.Add(cb.cooldown).Sub(cb.now())}
	case StateHalfOpen:
		if cb.probesInHalf >= cb.halfOpenProbes {
			cb.rejected++
			return &OpenError{Name: cb.name}
		}
		cb.probesInHalf++
	}
	return nil
}

// advanceLocked moves an open circuit to half-open once the cooldown passed
func (cb *CircuitBreaker) advanceLocked() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		cb.setStateLocked(StateHalfOpen)
		cb.probesInHalf = 0
		cb.successInHalf = 0
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successInHalf++
		if cb.successInHalf >= cb.halfOpenProbes {
			cb.failures = 0
			cb.setStateLocked(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.maxFailures {
			cb.tripLocked()
		}
	case StateHalfOpen:
		cb.tripLocked()
	}
}

func (cb *CircuitBreaker) tripLocked() {
	cb.openedAt = cb.now()
	cb.setStateLocked(StateOpen)
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	if cb.state == state {
		return
	}
	previous := cb.state
	cb.state = state
	cb.publishState()

	entry := cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"from":            previous.String(),
		"state":           state.String(),
		"failures":        cb.failures,
	})
	if state == StateOpen {
		entry.WithField("cooldown_ms", cb.cooldown.Milliseconds()).Warn("Circuit breaker opened")
	} else {
		entry.Info("Circuit breaker state changed")
	}
}

func (cb *CircuitBreaker) publishState() {
	metrics.SetGauge("circuit_breaker_state", float64(cb.state), map[string]string{"name": cb.name},
		"Circuit breaker state (0 closed, 1 open, 2 half-open)")
}

// State returns the current state, advancing an expired open circuit
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked()
	return cb.state
}

// Stats is a point-in-time view of a breaker
type Stats struct {
	Name     string
	State    State
	Failures uint32
	Requests uint64
	Rejected uint64
	OpenedAt time.Time
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		Name:     cb.name,
		State:    cb.state,
		Failures: cb.failures,
		Requests: cb.requests,
		Rejected: cb.rejected,
		OpenedAt: cb.openedAt,
	}
}

// OpenError is returned for calls rejected without running
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is open", e.Name)
}

// IsOpenError reports whether err, or anything it wraps, is an *OpenError
func IsOpenError(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}
