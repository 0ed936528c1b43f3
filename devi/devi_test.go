package devi

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/entity"
	"github.com/signalsfoundry/primemover/event"
)

// recorder is a minimal Entity used across these tests; ordinal 0 is a
// plain no-op, ordinal 1 calls back into the scheduler to post another
// event, ordinal 2 blocks on a continuing event targeting ordinal 3.
type recorder struct {
	entity.Base
	mu    sync.Mutex
	calls []string
	sched entity.Scheduler
}

func (r *recorder) note(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) Invoke(ordinal int, args []any) (any, error) {
	switch ordinal {
	case 0:
		r.note("noop")
		return nil, nil
	case 1:
		r.note("poster")
		return nil, r.sched.PostEvent(r, 0, nil)
	case 2:
		r.note("blocker-before")
		v, err := r.sched.PostContinuingEvent(r, 3, nil)
		r.note("blocker-after")
		if err != nil {
			return nil, err
		}
		return v, nil
	case 3:
		r.note("callee")
		return "result-42", nil
	case 4:
		return nil, errors.New("boom")
	default:
		return nil, &UnknownOrdinal{Ordinal: ordinal}
	}
}

func (r *recorder) SignatureFor(ordinal int) string {
	return "recorder.ordinal"
}

func TestPostEventDispatchesAtCurrentTime(t *testing.T) {
	d := New(Config{})
	r := &recorder{sched: d}

	if err := d.PostEvent(r, 0, nil); err != nil {
		t.Fatalf("PostEvent: %v", err)
	}
	if err := d.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := d.CurrentTime(); got != core.Zero {
		t.Fatalf("CurrentTime = %v, want 0", got)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) != 1 || r.calls[0] != "noop" {
		t.Fatalf("calls = %v, want [noop]", r.calls)
	}
}

func TestTimeViolationRejectsPastPost(t *testing.T) {
	d := New(Config{})
	r := &recorder{sched: d}
	if err := d.PostEventAt(core.Time(100), r, 0, nil); err != nil {
		t.Fatalf("PostEventAt: %v", err)
	}
	if err := d.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	err := d.PostEventAt(core.Time(50), r, 0, nil)
	var tv *TimeViolation
	if !errors.As(err, &tv) {
		t.Fatalf("PostEventAt into the past = %v, want *TimeViolation", err)
	}
}

func TestSequenceAssignedAtPostTime(t *testing.T) {
	d := New(Config{})
	r := &recorder{sched: d}
	if err := d.PostEvent(r, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.PostEvent(r, 0, nil); err != nil {
		t.Fatal(err)
	}
	first := d.Peek()
	if first == nil || first.Sequence != 1 {
		t.Fatalf("first queued Sequence = %v, want 1", first)
	}
}

func TestBlockingRoundTrip(t *testing.T) {
	d := New(Config{})
	r := &recorder{sched: d}

	if err := d.PostEvent(r, 2, nil); err != nil {
		t.Fatal(err)
	}

	// Drain: the blocker yields, the callee dispatches and completes, a
	// resume marker wakes the blocker, which then itself completes.
	for i := 0; i < 10; i++ {
		if err := d.Step(); err != nil {
			if errors.Is(err, ErrNoMoreEvents) {
				break
			}
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	want := []string{"blocker-before", "callee", "blocker-after"}
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", r.calls, want)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", r.calls, want)
		}
	}
}

func TestAdvanceMovesCurrentTimeForward(t *testing.T) {
	d := New(Config{})
	invoked := make(chan struct{})
	ent := entityFunc(func(ordinal int, args []any) (any, error) {
		if err := d.Advance(core.Duration(500)); err != nil {
			return nil, err
		}
		close(invoked)
		return nil, nil
	})
	if err := d.PostEvent(ent, 0, nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := d.Step(); err != nil {
			if errors.Is(err, ErrNoMoreEvents) {
				break
			}
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	select {
	case <-invoked:
	default:
		t.Fatalf("Advance never resumed the caller")
	}
	if got := d.CurrentTime(); got != core.Time(500) {
		t.Fatalf("CurrentTime = %v, want 500", got)
	}
}

func TestDispatchErrorSurfacesAsSimulationException(t *testing.T) {
	d := New(Config{})
	r := &recorder{sched: d}
	if err := d.PostEvent(r, 4, nil); err != nil {
		t.Fatal(err)
	}
	err := d.Step()
	var se *SimulationException
	if !errors.As(err, &se) {
		t.Fatalf("Step() = %v, want *SimulationException", err)
	}
}

func TestEndSimulationAtStopsLoop(t *testing.T) {
	d := New(Config{})
	r := &recorder{sched: d}
	if err := d.PostEvent(r, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.EndSimulationAt(core.Time(10)); err != nil {
		t.Fatal(err)
	}
	if err := d.Step(); err != nil {
		t.Fatalf("first Step: %v", err)
	}
	err := d.Step()
	if !errors.Is(err, ErrSimulationEnd) {
		t.Fatalf("second Step = %v, want ErrSimulationEnd", err)
	}
}

// entityFunc adapts a function to entity.Entity for small inline tests.
type entityFunc func(ordinal int, args []any) (any, error)

func (f entityFunc) Invoke(ordinal int, args []any) (any, error) { return f(ordinal, args) }
func (f entityFunc) SignatureFor(int) string                     { return "entityFunc" }

func TestObserverNotifiedOnDispatchAndComplete(t *testing.T) {
	var dispatched, completed int
	var mu sync.Mutex
	obs := observerFuncs{
		onDispatched: func() { mu.Lock(); dispatched++; mu.Unlock() },
		onCompleted:  func() { mu.Lock(); completed++; mu.Unlock() },
	}
	d := New(Config{Observer: obs})
	r := &recorder{sched: d}
	if err := d.PostEvent(r, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Step(); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if dispatched != 1 || completed != 1 {
		t.Fatalf("dispatched=%d completed=%d, want 1 and 1", dispatched, completed)
	}
}

type observerFuncs struct {
	onDispatched func()
	onCompleted  func()
}

func (o observerFuncs) OnPosted(*event.Record)                            {}
func (o observerFuncs) OnDispatched(*event.Record)                       { o.onDispatched() }
func (o observerFuncs) OnCompleted(*event.Record, time.Duration, error) { o.onCompleted() }
