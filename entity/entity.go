// Package entity defines the dispatch protocol every simulated object
// implements, and the process-wide binding that lets a transformed entity's
// generated stub methods reach "the currently bound controller" without the
// modeler threading one through every call.
package entity

import (
	"sync"
	"sync/atomic"

	"github.com/signalsfoundry/primemover/core"
)

// Entity is the contract every simulated object satisfies. A build-time
// transformation (see package transform) generates Invoke and SignatureFor
// for types that declare events; modelers never write them by hand.
type Entity interface {
	// Invoke dispatches the event with the given ordinal, decoding args in
	// the order the original method declared its parameters, and returns
	// whatever the method returned (nil for void methods).
	Invoke(ordinal int, args []any) (any, error)

	// SignatureFor returns a human-readable "Type.Method(argTypes) retType"
	// string for the given ordinal, used for statistics labels and error
	// messages. It must return the same string for the life of the process.
	SignatureFor(ordinal int) string
}

// Scheduler is the static time API a transformed entity's stub methods call
// into: post an event, post a blocking event and wait for its result,
// advance/sleep, or end the run. devi.Devi implements this.
type Scheduler interface {
	PostEvent(target Entity, ordinal int, args []any) error
	PostEventAt(at core.Time, target Entity, ordinal int, args []any) error
	PostContinuingEvent(target Entity, ordinal int, args []any) (any, error)
	Advance(d core.Duration) error
	Sleep(d core.Duration) error
	EndSimulationAt(at core.Time) error
	CurrentTime() core.Time
}

// current holds the controller bound to the process. Only one controller
// runs at a time in this kernel (see spec's concurrency model: virtual-time
// and stepping controllers are single-threaded; under controller.RealTime,
// devi.Devi guards queue access with its own mutex), so a single process-wide binding -
// mirroring the otel.SetTracerProvider/otel.Tracer() global-provider idiom -
// is sufficient and keeps generated stub code free of an explicit parameter.
var current atomic.Pointer[Scheduler]

// SetController binds s as the process's current controller. Controllers
// call this on loop entry and clear it (SetController(nil)) on every exit
// path, including exceptional termination.
func SetController(s Scheduler) {
	if s == nil {
		current.Store(nil)
		return
	}
	current.Store(&s)
}

// Controller returns the currently bound controller, or nil if none is
// bound.
func Controller() Scheduler {
	p := current.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Base is embedded by every entity type. It gives the entity lazy,
// one-time binding to whatever controller is current the first time any of
// its events executes, per the dispatch protocol's binding guarantee.
type Base struct {
	once       sync.Once
	controller Scheduler
}

// Bound returns the controller this entity is bound to, binding it on first
// call to whatever is currently registered via SetController.
func (b *Base) Bound() Scheduler {
	b.once.Do(func() {
		b.controller = Controller()
	})
	return b.controller
}
