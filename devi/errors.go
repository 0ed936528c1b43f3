package devi

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/primemover/core"
)

// ErrNoMoreEvents is returned by Devi.Step when the queue is empty - there
// is nothing left to dispatch.
var ErrNoMoreEvents = errors.New("devi: no more events")

// ErrSimulationEnd is the sentinel a terminal marker event raises; the
// controller's loop catches it and exits cleanly rather than propagating it
// as a failure.
var ErrSimulationEnd = errors.New("devi: simulation end")

// TimeViolation is returned when a caller attempts to post an event at a
// time strictly before the current time.
type TimeViolation struct {
	Attempted core.Time
	Current   core.Time
}

func (e *TimeViolation) Error() string {
	return fmt.Sprintf("devi: cannot post event at %v before current time %v", e.Attempted, e.Current)
}

// UnknownOrdinal is returned by Invoke when an entity does not recognize the
// requested ordinal - almost always a sign of a stale transformation.
type UnknownOrdinal struct {
	Ordinal int
}

func (e *UnknownOrdinal) Error() string {
	return fmt.Sprintf("devi: unknown event ordinal %d", e.Ordinal)
}

// SimulationException wraps a panic or error raised while dispatching an
// event, recording which event was executing when it happened.
type SimulationException struct {
	Signature string
	Time      core.Time
	Err       error
}

func (e *SimulationException) Error() string {
	return fmt.Sprintf("devi: event %s at %v failed: %v", e.Signature, e.Time, e.Err)
}

func (e *SimulationException) Unwrap() error {
	return e.Err
}
