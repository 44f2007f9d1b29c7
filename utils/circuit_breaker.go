package utils

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards a storage backend: after enough consecutive
// failures the circuit opens and calls fail fast until the timeout
// elapses, at which point a limited number of probe requests go through.
type CircuitBreaker struct {
	name        string
	maxFailures uint32
	maxRequests uint32
	timeout     time.Duration

	mutex  sync.Mutex
	state  State
	counts Counts
	expiry time.Time
}

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:        name,
		maxFailures: 5,
		maxRequests: 1,
		timeout:     30 * time.Second,
		state:       StateClosed,
	}
}

// Execute runs req unless the circuit is open. Context cancellation is
// the callee's concern; the breaker only tracks outcomes.
func (cb *CircuitBreaker) Execute(ctx context.Context, req func(ctx context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			cb.afterRequest(false)
			panic(e)
		}
	}()

	err := req(ctx)
	cb.afterRequest(err == nil)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.currentState(time.Now())
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	state := cb.currentState(time.Now())

	if state == StateOpen {
		return ErrCircuitOpen
	}
	if state == StateHalfOpen && cb.counts.Requests >= cb.maxRequests {
		return ErrCircuitOpen
	}

	cb.counts.Requests++
	return nil
}

func (cb *CircuitBreaker) afterRequest(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	state := cb.currentState(time.Now())
	if success {
		cb.onSuccess(state)
	} else {
		cb.onFailure(state)
	}
}

func (cb *CircuitBreaker) onSuccess(state State) {
	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0

	if state == StateHalfOpen {
		cb.state = StateClosed
		cb.counts = Counts{}
	}
}

func (cb *CircuitBreaker) onFailure(state State) {
	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0

	if state == StateHalfOpen || cb.counts.ConsecutiveFailures >= cb.maxFailures {
		cb.state = StateOpen
		cb.expiry = time.Now().Add(cb.timeout)
		cb.counts = Counts{}
	}
}

func (cb *CircuitBreaker) currentState(now time.Time) State {
	if cb.state == StateOpen && cb.expiry.Before(now) {
		cb.state = StateHalfOpen
		cb.counts = Counts{}
	}
	return cb.state
}
