// Package counter holds the process wide counter and the rules for reading and updating it.
package counter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Forbidden is the one value Update will never accept.
const Forbidden uint64 = 10

// ErrInvalidInput is matched by every error Update returns.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError is returned when an update proposes the forbidden value.
type InvalidInputError struct {
	Value uint64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("do not like the number %d", e.Value)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput //nolint:errorlint // sentinel comparison
}

// State is the shared counter. The zero value is ready to use and reads as 0.
type State struct {
	v atomic.Uint64
}

func NewState() *State {
	return &State{}
}

// Get returns the current value.
func (s *State) Get() uint64 {
	return s.v.Load()
}

// Set replaces the current value.
func (s *State) Set(v uint64) {
	s.v.Store(v)
}

// MetricName satisfies system.MetricProducer
func (s *State) MetricName() string {
	return "counter"
}

// Gauges satisfies system.MetricProducer
func (s *State) Gauges(context.Context) map[string]float64 {
	return map[string]float64{
		"value": float64(s.Get()),
	}
}

// Value is the wire shape of the counter for both query and update.
type Value struct {
	Counter uint64 `json:"counter"`
}

type Service struct {
	state *State
}

func NewService(state *State) *Service {
	if state == nil {
		state = NewState()
	}
	return &Service{state: state}
}

// Query returns the current counter value. It cannot fail.
func (s *Service) Query(_ context.Context) Value {
	return Value{Counter: s.state.Get()}
}

// Update stores v unless it is the forbidden value, in which case the
// state is left untouched and an *InvalidInputError is returned.
func (s *Service) Update(_ context.Context, v uint64) error {
	if v == Forbidden {
		return &InvalidInputError{Value: v}
	}
	s.state.Set(v)
	return nil
}
