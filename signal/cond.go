// Package signal implements condition-variable-style signalling on top of
// devi's SwapCaller/Park/Post primitives: a caller can Wait on a Cond and be
// woken later by a Signal or Broadcast from another turn, without holding a
// queue slot while parked. Per the scheduler core's guidance, pending
// signals that arrive before anyone waits are kept in a small FIFO rather
// than a counter-plus-value pair, so no signal is ever lost to a race
// between Signal and Wait and multiple pending values are delivered in
// post order.
package signal

import (
	"sync"

	"github.com/signalsfoundry/primemover/devi"
)

// Cond is a single wait point a resource (a queue, a semaphore, an M/M/1
// server) exposes to whoever wants to be notified when it changes.
type Cond struct {
	mu      sync.Mutex
	pending []any
	waiters []*devi.Parked
}

// New returns an empty Cond.
func New() *Cond {
	return &Cond{}
}

// Wait suspends the calling turn until a value is available: either one
// already pending (consumed immediately, FIFO order) or the next one
// delivered by Signal/Broadcast. It must be called from within an entity's
// dispatch.
func (c *Cond) Wait(d *devi.Devi) (any, error) {
	c.mu.Lock()
	if len(c.pending) > 0 {
		v := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()
		return v, nil
	}

	p := d.SwapCaller(nil)
	c.waiters = append(c.waiters, p)
	c.mu.Unlock()

	return d.Park(p)
}

// Signal wakes the longest-waiting parked caller with v, or - if nobody is
// currently waiting - appends v to the pending FIFO for the next Wait to
// consume.
func (c *Cond) Signal(d *devi.Devi, v any) error {
	c.mu.Lock()
	if len(c.waiters) == 0 {
		c.pending = append(c.pending, v)
		c.mu.Unlock()
		return nil
	}
	p := c.waiters[0]
	c.waiters = c.waiters[1:]
	c.mu.Unlock()

	return d.Post(p, v, nil)
}

// Broadcast wakes every currently parked caller with v. Callers that arrive
// after a Broadcast are unaffected; it does not enqueue a pending value.
func (c *Cond) Broadcast(d *devi.Devi, v any) error {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, p := range waiters {
		if err := d.Post(p, v, nil); err != nil {
			return err
		}
	}
	return nil
}

// NumWaiters reports how many callers are currently parked, useful for
// statistics and tests.
func (c *Cond) NumWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
