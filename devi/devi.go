// Package devi implements the scheduler core - the kernel component the
// spec calls "the Devi" - that owns the event queue and drives dispatch.
// Controllers (package controller) own the loop; Devi owns one Step of it.
package devi

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/entity"
	"github.com/signalsfoundry/primemover/event"
)

// Observer receives dispatch lifecycle notifications for statistics and
// tracing. A nil Observer on Config is replaced with a no-op.
type Observer interface {
	// OnPosted is called every time an event is enqueued, fresh or resume.
	OnPosted(ev *event.Record)
	// OnDispatched is called once, synchronously, when a fresh (non-resume)
	// event begins executing.
	OnDispatched(ev *event.Record)
	// OnCompleted is called once a dispatch's full call chain - including
	// any blocking sub-calls - has resolved, successfully or not.
	OnCompleted(ev *event.Record, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) OnPosted(*event.Record)                            {}
func (noopObserver) OnDispatched(*event.Record)                        {}
func (noopObserver) OnCompleted(*event.Record, time.Duration, error) {}

// Config configures a new Devi.
type Config struct {
	Observer Observer

	// TrackEventSources, when true, records the currently-dispatching
	// event as every posted event's Caller, letting a traversal of Caller
	// links yield a causal chain (also how stats.Collector parents spans).
	// Disabled by default per the spec's statistics component: retained
	// chains outlive their events and cost memory.
	TrackEventSources bool

	// DebugEvents, when true, captures a shallow stack at every post site
	// and attaches it to the posted Record for later printing. Expensive;
	// disabled by default.
	DebugEvents bool
}

// Devi is the scheduler core: an event queue plus the dispatch protocol
// described in the spec's Scheduler Core component. It implements
// entity.Scheduler so transformed entities can reach it through
// entity.Base's lazy binding.
type Devi struct {
	mu    sync.Mutex
	queue *event.Queue
	seq   uint64

	currentTime  core.Time
	currentEvent *event.Record
	activeTurn   *turn

	observer     Observer
	notify       chan struct{}
	trackSources bool
	debugEvents  bool
}

// New returns an empty Devi ready to accept posts.
func New(cfg Config) *Devi {
	obs := cfg.Observer
	if obs == nil {
		obs = noopObserver{}
	}
	return &Devi{
		queue:        event.NewQueue(),
		observer:     obs,
		notify:       make(chan struct{}, 1),
		trackSources: cfg.TrackEventSources,
		debugEvents:  cfg.DebugEvents,
	}
}

// SetTrackEventSources toggles Caller-link recording at run time.
func (d *Devi) SetTrackEventSources(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trackSources = on
}

// SetDebugEvents toggles post-site stack capture at run time.
func (d *Devi) SetDebugEvents(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.debugEvents = on
}

// Notify returns a channel that receives a value whenever a new event is
// enqueued. It is buffered to depth one and drops sends when full, so a
// reader only needs to know "something changed, re-check the queue" rather
// than count individual posts - the pattern RealTime's wait loop uses to
// wake from an idle wait when an external goroutine posts work.
func (d *Devi) Notify() <-chan struct{} {
	return d.notify
}

// CurrentTime returns the time of the event currently being dispatched, or
// the most recently dispatched event's time if nothing is active.
func (d *Devi) CurrentTime() core.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentTime
}

// CurrentEvent returns the event record currently being dispatched, or nil.
func (d *Devi) CurrentEvent() *event.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentEvent
}

// Reset discards all queued events and returns the clock to core.Zero, as
// if New had just been called with the same Config. It does not touch the
// bound entity.Scheduler (a controller's Bind/Unbind still governs that)
// and must not be called while a turn is in flight mid-Step.
func (d *Devi) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = event.NewQueue()
	d.seq = 0
	d.currentTime = core.Zero
	d.currentEvent = nil
	d.activeTurn = nil
}

// Len returns the number of events currently queued.
func (d *Devi) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// Peek returns the earliest-due queued event without removing it, or nil.
func (d *Devi) Peek() *event.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Peek()
}

func (d *Devi) nextSeqLocked() uint64 {
	d.seq++
	return d.seq
}

// enqueue assigns a fresh sequence number and (when source tracking is on)
// the causal-parent Caller link, validates monotone time, and pushes e onto
// the queue. Every posted event - fresh or resume - goes through here, so
// sequence numbers are always assigned at post-or-repost time (resolving
// the spec's sequence Open Question that way).
func (d *Devi) enqueue(e *event.Record) error {
	d.mu.Lock()
	if e.Time < d.currentTime {
		cur := d.currentTime
		d.mu.Unlock()
		return &TimeViolation{Attempted: e.Time, Current: cur}
	}
	e.Sequence = d.nextSeqLocked()
	if e.Caller == nil && d.trackSources {
		e.Caller = d.currentEvent
	}
	if d.debugEvents && e.DebugTrace == nil {
		e.DebugTrace = captureStack()
	}
	d.queue.Push(e)
	d.mu.Unlock()
	d.observer.OnPosted(e)
	select {
	case d.notify <- struct{}{}:
	default:
	}
	return nil
}

// captureStack renders the goroutine's call stack above the scheduler-core
// frames, for DebugEvents mode; significantly more expensive than the
// default no-op, which is why it is opt-in.
func captureStack() []string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function))
		if !more {
			break
		}
	}
	return out
}

// Step pops and fully processes the next due queue entry: a fresh dispatch
// runs the target's Invoke on its own goroutine and waits for it to either
// complete or yield (via a blocking call); a resume marker wakes the turn
// it names and waits the same way. Step returns ErrNoMoreEvents when the
// queue is empty, ErrSimulationEnd when a terminal marker is popped, or a
// *SimulationException wrapping a failed dispatch.
func (d *Devi) Step() error {
	d.mu.Lock()
	ev := d.queue.Pop()
	d.mu.Unlock()
	if ev == nil {
		return ErrNoMoreEvents
	}

	d.currentTime = ev.Time
	d.currentEvent = ev

	if ev.Terminal {
		return ErrSimulationEnd
	}

	var t *turn
	if ev.IsResume() {
		rt, ok := ev.Resumer.(*turn)
		if !ok {
			return fmt.Errorf("devi: resume marker with unexpected resumer type %T", ev.Resumer)
		}
		t = rt
		d.activeTurn = t
		rt.Wake(ev.ResumeValue, ev.ResumeErr)
	} else {
		d.observer.OnDispatched(ev)
		t = newTurn()
		t.owner = ev
		t.started = time.Now()
		d.activeTurn = t
		go d.runTurn(t, ev)
	}

	res := <-t.signal
	if res.kind == outcomeYield {
		return nil
	}
	return d.completeDispatch(t.owner, res.value, res.err, time.Since(t.started))
}

func (d *Devi) runTurn(t *turn, ev *event.Record) {
	defer func() {
		if r := recover(); r != nil {
			t.signal <- outcome{kind: outcomeComplete, err: fmt.Errorf("devi: panic dispatching %s: %v", ev.Signature(), r)}
		}
	}()
	v, err := ev.Target.Invoke(ev.Ordinal, ev.Arguments)
	t.signal <- outcome{kind: outcomeComplete, value: v, err: err}
}

// completeDispatch finalizes a turn that has fully returned (not yielded
// again). owner is the turn's original dispatch record, fixed for the
// turn's whole lifetime regardless of how many times it parked and resumed
// in between.
func (d *Devi) completeDispatch(owner *event.Record, value any, err error, elapsed time.Duration) error {
	d.observer.OnCompleted(owner, elapsed, err)

	if owner.Continuation != nil {
		cont := owner.Continuation
		cont.ReturnValue = value
		cont.Err = err
		cont.Resumed = true
		resumeEvt := &event.Record{
			Time:        d.currentTime,
			Resumer:     cont.Waiter,
			ResumeValue: value,
			ResumeErr:   err,
		}
		if d.trackSources {
			resumeEvt.Caller = owner
		}
		return d.enqueue(resumeEvt)
	}

	if err != nil {
		return &SimulationException{Signature: owner.Signature(), Time: d.currentTime, Err: err}
	}
	return nil
}

var _ entity.Scheduler = (*Devi)(nil)

// From recovers the concrete *Devi behind a bound entity.Scheduler, for
// entity code that needs the scheduler core's extra surface (SwapCaller,
// Park, Post) beyond what entity.Scheduler exposes - condition-variable-
// style primitives (package signal) are the intended caller. It returns
// false if s is not a *Devi, which should not happen for entities bound
// through the controllers in this module.
func From(s entity.Scheduler) (*Devi, bool) {
	d, ok := s.(*Devi)
	return d, ok
}
