package controller

import (
	"context"
	"errors"
	"time"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/devi"
	"github.com/signalsfoundry/primemover/entity"
)

// RealTime paces a devi.Devi's dispatch to wall-clock time: event at
// simulated time t is not dispatched until t has elapsed since the run's
// epoch (scaled by Rate), so externally-driven or human-facing runs see
// events land roughly when they "should." Grounded on the teacher's original
// wall-clock ticker-plus-listener loop (see DESIGN.md's note on the deleted
// timectrl package), generalized from fixed ticks to per-event waits and
// woken early by devi.Devi.Notify when a concurrent goroutine posts new work
// during an otherwise idle wait.
type RealTime struct {
	d    *devi.Devi
	Rate float64 // simulated seconds per wall-clock second; 1.0 plays at real speed.

	// IdleTimeout bounds how long Run waits for a new post once the queue
	// drains, before giving up and returning. Zero means wait forever.
	IdleTimeout time.Duration
}

// NewRealTime wraps d for wall-clock-paced execution at the given rate (1.0
// for real-time playback).
func NewRealTime(d *devi.Devi, rate float64) *RealTime {
	if rate <= 0 {
		rate = 1.0
	}
	return &RealTime{d: d, Rate: rate}
}

// Run binds d, then repeatedly waits until the next due event's simulated
// time has arrived in wall-clock time before stepping it. If the queue
// empties, Run waits on d.Notify (bounded by IdleTimeout when set) for a
// concurrently-posted event rather than spinning.
func (r *RealTime) Run(ctx context.Context) error {
	entity.SetController(r.d)
	defer entity.SetController(nil)

	epochSim := r.d.CurrentTime()
	epochWall := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next := r.d.Peek()
		if next == nil {
			if !r.waitForWork(ctx) {
				return nil
			}
			continue
		}

		due := r.wallTimeFor(epochSim, epochWall, next.Time)
		if wait := time.Until(due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			case <-r.d.Notify():
				timer.Stop()
				continue
			}
		}

		err := r.d.Step()
		if err == nil {
			continue
		}
		if errors.Is(err, devi.ErrNoMoreEvents) || errors.Is(err, devi.ErrSimulationEnd) {
			return nil
		}
		return err
	}
}

// wallTimeFor maps a simulated Time to the wall-clock instant it is due at,
// given the epoch pairing (epochSim, epochWall) recorded when the run
// started, scaled by Rate (simulated seconds per wall-clock second).
func (r *RealTime) wallTimeFor(epochSim core.Time, epochWall time.Time, simTime core.Time) time.Time {
	simElapsed := simTime.Sub(epochSim)
	wallElapsed := time.Duration(float64(simElapsed) / r.Rate)
	return epochWall.Add(wallElapsed)
}

func (r *RealTime) waitForWork(ctx context.Context) bool {
	if r.IdleTimeout <= 0 {
		select {
		case <-ctx.Done():
			return false
		case <-r.d.Notify():
			return true
		}
	}
	timer := time.NewTimer(r.IdleTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-r.d.Notify():
		return true
	case <-timer.C:
		return false
	}
}
