package devi

import (
	"fmt"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/entity"
	"github.com/signalsfoundry/primemover/event"
)

// sleepEntity is the internal no-op target behind Advance and Sleep; it
// never appears in modeler code.
type sleepEntity struct{}

func (sleepEntity) Invoke(int, []any) (any, error) { return nil, nil }
func (sleepEntity) SignatureFor(int) string        { return "devi.sleep()" }

// PostEvent enqueues target's ordinal event at the current time and
// returns immediately without suspending the caller.
func (d *Devi) PostEvent(target entity.Entity, ordinal int, args []any) error {
	return d.enqueue(&event.Record{
		Target:    target,
		Ordinal:   ordinal,
		Arguments: args,
		Time:      d.CurrentTime(),
	})
}

// PostEventAt enqueues target's ordinal event at an explicit future time
// (t must be at or after the current time) and returns immediately.
func (d *Devi) PostEventAt(t core.Time, target entity.Entity, ordinal int, args []any) error {
	return d.enqueue(&event.Record{
		Target:    target,
		Ordinal:   ordinal,
		Arguments: args,
		Time:      t,
	})
}

// PostContinuingEvent enqueues target's ordinal event at the current time
// and suspends the calling turn until that event's dispatch - including any
// blocking sub-calls it makes - fully resolves, then returns its result.
func (d *Devi) PostContinuingEvent(target entity.Entity, ordinal int, args []any) (any, error) {
	callerTurn := d.activeTurn
	if callerTurn == nil {
		return nil, fmt.Errorf("devi: PostContinuingEvent called with no active turn")
	}
	e := &event.Record{
		Target:       target,
		Ordinal:      ordinal,
		Arguments:    args,
		Time:         d.CurrentTime(),
		Continuation: &event.Continuation{Waiter: callerTurn},
	}
	if err := d.enqueue(e); err != nil {
		return nil, err
	}
	return park(callerTurn)
}

// Advance suspends the calling turn until d has elapsed in simulated time.
func (d *Devi) Advance(dur core.Duration) error {
	if dur < 0 {
		return fmt.Errorf("devi: cannot advance by a negative duration")
	}
	callerTurn := d.activeTurn
	if callerTurn == nil {
		return fmt.Errorf("devi: Advance called with no active turn")
	}
	e := &event.Record{
		Target:       sleepEntity{},
		Time:         d.CurrentTime().Add(dur),
		Continuation: &event.Continuation{Waiter: callerTurn},
	}
	if err := d.enqueue(e); err != nil {
		return err
	}
	_, err := park(callerTurn)
	return err
}

// Sleep posts a no-op marker at currentTime+d and returns immediately,
// without suspending the caller - useful when a modeler only wants to
// advance a future action site, not suspend the current event.
func (d *Devi) Sleep(dur core.Duration) error {
	if dur < 0 {
		return fmt.Errorf("devi: cannot sleep for a negative duration")
	}
	return d.PostEventAt(d.CurrentTime().Add(dur), sleepEntity{}, 0, nil)
}

// EndSimulationAt posts a terminal marker at t; when the controller's loop
// reaches it, Step returns ErrSimulationEnd.
func (d *Devi) EndSimulationAt(t core.Time) error {
	return d.enqueue(&event.Record{Time: t, Terminal: true})
}

// Parked is a handle returned by SwapCaller: a caller's turn, detached from
// automatic continuation tracking, that the holder can reintroduce later
// via Post. It underlies condition-variable-style waits (package signal)
// that need to suspend without holding a queue slot.
type Parked struct {
	turn  *turn
	owner *event.Record
}

// SwapCaller detaches the currently active turn from the event it was
// dispatched for, handing the caller a handle it can store (e.g. in a
// waiter FIFO) and later reintroduce via Post. The active event slot
// becomes replacement (nil leaves it empty) so current-event bookkeeping
// stays consistent for any nested dispatch this turn still performs before
// parking.
func (d *Devi) SwapCaller(replacement *event.Record) *Parked {
	p := &Parked{turn: d.activeTurn, owner: d.currentEvent}
	d.currentEvent = replacement
	return p
}

// Park suspends the turn behind p until some later Post(p, ...) wakes it.
// Must be called on the same turn SwapCaller just detached.
func (d *Devi) Park(p *Parked) (any, error) {
	return park(p.turn)
}

// Post reintroduces a previously parked caller to the queue at the current
// time with a freshly assigned sequence, delivering v (and err) as the
// result of its pending Park call.
func (d *Devi) Post(p *Parked, v any, err error) error {
	return d.enqueue(&event.Record{
		Time:    d.CurrentTime(),
		Resumer: p.turn,
		ResumeValue: v,
		ResumeErr:   err,
		Caller:  p.owner,
	})
}

func park(t *turn) (any, error) {
	t.signal <- outcome{kind: outcomeYield}
	msg := <-t.resume
	return msg.value, msg.err
}
