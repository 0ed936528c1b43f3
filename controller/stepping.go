package controller

import (
	"errors"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/devi"
	"github.com/signalsfoundry/primemover/entity"
	"github.com/signalsfoundry/primemover/event"
)

// Stepping drives a devi.Devi one event at a time, for debuggers, REPLs, and
// tests that need to inspect state between dispatches. Unlike Simulation it
// does not bind/unbind automatically around a single call; callers bracket
// a session with Bind/Unbind so they can inspect state before the first
// step and after the last.
type Stepping struct {
	d *devi.Devi
}

// NewStepping wraps d for single-step execution.
func NewStepping(d *devi.Devi) *Stepping {
	return &Stepping{d: d}
}

// Bind registers d as the process's current controller. Call it before the
// first StepOne of a session.
func (s *Stepping) Bind() {
	entity.SetController(s.d)
}

// Unbind clears the process's current controller. Call it when a stepping
// session ends, successfully or not.
func (s *Stepping) Unbind() {
	entity.SetController(nil)
}

// StepOne advances the run by exactly one dispatch, returning whatever
// devi.Devi.Step returns (including devi.ErrNoMoreEvents/ErrSimulationEnd).
func (s *Stepping) StepOne() error {
	return s.d.Step()
}

// Step drains the queue one StepOne at a time until it empties or a
// terminal marker is popped, the same successful-ending contract as
// Simulation.Run, but without touching the controller binding - a caller
// brackets a Step with its own Bind/Unbind.
func (s *Stepping) Step() error {
	for {
		err := s.d.Step()
		if err == nil {
			continue
		}
		if errors.Is(err, devi.ErrNoMoreEvents) || errors.Is(err, devi.ErrSimulationEnd) {
			return nil
		}
		return err
	}
}

// HasMore reports whether another event is queued.
func (s *Stepping) HasMore() bool {
	return s.d.Len() > 0
}

// PeekNext returns the next due event without dispatching it, or nil if the
// queue is empty.
func (s *Stepping) PeekNext() *event.Record {
	return s.d.Peek()
}

// CurrentTime returns the time of the event most recently dispatched.
func (s *Stepping) CurrentTime() core.Time {
	return s.d.CurrentTime()
}

// Reset discards all queued events and returns the underlying devi.Devi's
// clock to core.Zero, letting a Stepping session be replayed from scratch
// without constructing a new Devi.
func (s *Stepping) Reset() {
	s.d.Reset()
}
