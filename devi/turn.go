package devi

import (
	"time"

	"github.com/signalsfoundry/primemover/event"
)

// A turn represents one logical caller's slice of execution: either the
// fresh goroutine spawned to run an entity's Invoke, or - after it parks
// inside PostContinuingEvent/Advance/Park - the same goroutine
// waiting to be woken with a result. Exactly one turn is ever "active" at a
// time in a virtual-time or stepping run; the dispatch loop hands the baton
// to a turn and blocks on signal until that turn either finishes or yields.
//
// This realizes spec.md §9's continuation guidance with Go's own goroutine
// stack standing in for the hand-written state machine a non-goroutine
// language would need: parking on resume preserves every local exactly,
// because it is the same stack, not a re-entry into a reconstructed one.
type turn struct {
	signal chan outcome   // the loop reads this once per activation
	resume chan resumeMsg // the parked goroutine reads this when woken

	// owner is the event record whose dispatch this turn represents - set
	// once, at spawn time, and unchanged across any number of parks/resumes.
	owner *event.Record
	// started marks when the turn was spawned, for dispatch-duration
	// reporting once it fully resolves.
	started time.Time
}

func newTurn() *turn {
	return &turn{
		signal: make(chan outcome, 1),
		resume: make(chan resumeMsg, 1),
	}
}

// Wake implements event.Resumable: it delivers a result to a parked turn.
// Called by the dispatch loop when it pops a resume marker.
func (t *turn) Wake(value any, err error) {
	t.resume <- resumeMsg{value: value, err: err}
}

type outcomeKind int

const (
	outcomeComplete outcomeKind = iota
	outcomeYield
)

type outcome struct {
	kind  outcomeKind
	value any
	err   error
}

type resumeMsg struct {
	value any
	err   error
}
