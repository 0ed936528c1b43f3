// Package event holds the Event Record, the Continuation it may carry, and
// the (time, sequence)-ordered Queue the scheduler core pops from.
package event

import (
	"fmt"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/entity"
)

// Resumable is implemented by whatever is parked waiting for a blocking
// call's result (devi's turn type). A Record with a non-nil Resumer is a
// resume marker, not a fresh dispatch: popping it wakes Resumer rather than
// calling Target.Invoke.
type Resumable interface {
	Wake(value any, err error)
}

// Continuation is the single-slot return channel a blocking call leaves
// behind. It is attached to the event the caller is waiting on; when that
// event finishes, the kernel deposits the result here before re-posting the
// caller.
type Continuation struct {
	// Waiter is the caller parked waiting for this event's result.
	Waiter Resumable

	ReturnValue any
	Err         error
	Resumed     bool
}

// Record is a single entry in the event queue: a target, an ordinal
// identifying which event to invoke, its arguments, the time it is due, and
// the sequence number that breaks time ties in strict post order.
type Record struct {
	Target    entity.Entity
	Ordinal   int
	Arguments []any

	Time     core.Time
	Sequence uint64

	// Continuation is set when this event's dispatch has a caller blocked
	// on its result.
	Continuation *Continuation

	// Resumer and ResumeValue/ResumeErr mark this Record as a resume
	// marker: popping it wakes Resumer with the given result instead of
	// invoking Target. Target/Ordinal/Arguments are unused on a resume
	// marker.
	Resumer     Resumable
	ResumeValue any
	ResumeErr   error

	// Terminal marks an end-of-simulation marker posted by
	// EndSimulationAt; popping it stops the run instead of dispatching.
	Terminal bool

	// Caller, if set, is the event whose dispatch posted this one - the
	// causal parent used for source tracking (exposed to callers as a
	// tracing parent span).
	Caller *Record

	// DebugTrace is an optional captured stack, populated only when the
	// controller is run with debug tracing enabled (expensive).
	DebugTrace []string
}

// IsResume reports whether this Record is a resume marker rather than a
// fresh dispatch.
func (r *Record) IsResume() bool {
	return r.Resumer != nil
}

// Signature returns a label suitable for statistics and log lines.
func (r *Record) Signature() string {
	if r == nil {
		return "<nil>"
	}
	if r.IsResume() {
		return "<resume>"
	}
	if r.Target == nil {
		return fmt.Sprintf("<ordinal %d>", r.Ordinal)
	}
	return r.Target.SignatureFor(r.Ordinal)
}
