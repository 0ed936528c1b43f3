package signal

import (
	"errors"
	"sync"
	"testing"

	"github.com/signalsfoundry/primemover/devi"
	"github.com/signalsfoundry/primemover/entity"
)

// waiter is an entity.Entity whose ordinal 0 waits on a shared Cond and
// records whatever value wakes it; ordinal 1 signals that Cond.
type waiter struct {
	entity.Base
	cond *Cond
	d    *devi.Devi

	mu       sync.Mutex
	woken    []any
	signaled int
}

func (w *waiter) Invoke(ordinal int, args []any) (any, error) {
	switch ordinal {
	case 0:
		v, err := w.cond.Wait(w.d)
		w.mu.Lock()
		w.woken = append(w.woken, v)
		w.mu.Unlock()
		return v, err
	case 1:
		return nil, w.cond.Signal(w.d, args[0])
	default:
		return nil, nil
	}
}

func (w *waiter) SignatureFor(int) string { return "waiter.ordinal" }

func TestSignalBeforeWaitIsQueuedFIFO(t *testing.T) {
	d := devi.New(devi.Config{})
	c := New()
	w := &waiter{cond: c, d: d}

	if err := d.PostEvent(w, 1, []any{"first"}); err != nil {
		t.Fatal(err)
	}
	if err := d.PostEvent(w, 1, []any{"second"}); err != nil {
		t.Fatal(err)
	}
	if err := d.PostEvent(w, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.PostEvent(w, 0, nil); err != nil {
		t.Fatal(err)
	}

	drain(t, d)

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.woken) != 2 || w.woken[0] != "first" || w.woken[1] != "second" {
		t.Fatalf("woken = %v, want [first second] in order", w.woken)
	}
}

func TestWaitBeforeSignalWakesOnSignal(t *testing.T) {
	d := devi.New(devi.Config{})
	c := New()
	w := &waiter{cond: c, d: d}

	if err := d.PostEvent(w, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.PostEvent(w, 1, []any{"later"}); err != nil {
		t.Fatal(err)
	}

	drain(t, d)

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.woken) != 1 || w.woken[0] != "later" {
		t.Fatalf("woken = %v, want [later]", w.woken)
	}
	if c.NumWaiters() != 0 {
		t.Fatalf("NumWaiters = %d, want 0 after signal", c.NumWaiters())
	}
}

func drain(t *testing.T, d *devi.Devi) {
	t.Helper()
	for i := 0; i < 50; i++ {
		if err := d.Step(); err != nil {
			if errors.Is(err, devi.ErrNoMoreEvents) {
				return
			}
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	t.Fatalf("queue did not drain within 50 steps")
}
