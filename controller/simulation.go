// Package controller holds the three ways a devi.Devi's event queue can be
// driven: Simulation runs it to completion as fast as possible, Stepping
// exposes one step at a time for debuggers and tests, and RealTime paces
// dispatch to wall-clock time. All three bind themselves as the process's
// current entity.Scheduler for the duration of a run, mirroring the
// otel.SetTracerProvider global-provider idiom devi's entity package
// already uses.
package controller

import (
	"context"
	"errors"

	"github.com/signalsfoundry/primemover/devi"
	"github.com/signalsfoundry/primemover/entity"
)

// Simulation drives a devi.Devi to completion as fast as the host can step
// it, the default mode for batch runs and tests.
type Simulation struct {
	d *devi.Devi
}

// NewSimulation wraps d for virtual-time-only execution.
func NewSimulation(d *devi.Devi) *Simulation {
	return &Simulation{d: d}
}

// Run binds d as the process's current controller, steps it until the
// queue drains or a terminal marker is popped, then unbinds. It returns nil
// on ErrNoMoreEvents or ErrSimulationEnd (both are expected, successful
// endings), any other error otherwise - including ctx being canceled
// between steps.
func (s *Simulation) Run(ctx context.Context) error {
	entity.SetController(s.d)
	defer entity.SetController(nil)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

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
