package main

import (
	"fmt"

	"github.com/signalsfoundry/primemover/core"
	"github.com/signalsfoundry/primemover/devi"
	"github.com/signalsfoundry/primemover/examples/mm1"
	"github.com/signalsfoundry/primemover/scenario"
)

// seedFunc seeds a devi.Devi with one scenario's initial events and returns
// a function that, once the run has finished, returns a one-line summary of
// model-specific statistics a generic report.Report doesn't carry (e.g.
// server utilization).
type seedFunc func(d *devi.Devi, cfg *scenario.Config) (summarize func(finalTime core.Time) string, err error)

// models is the registry cmd/primemover's "run" command looks up --scenario
// files' model: field against. Unlike the teacher's satellite scenarios,
// entities here are compiled into the binary rather than described in data,
// so a scenario file selects and parameterizes one of these rather than
// constructing entities from scratch.
var models = map[string]seedFunc{
	"mm1": seedMM1,
}

func seedMM1(d *devi.Devi, cfg *scenario.Config) (func(core.Time) string, error) {
	params := cfg.MM1
	if params == nil {
		params = &scenario.MM1Params{Customers: 10, IntervalNS: 10, HoldNS: 15}
	}
	if params.Customers <= 0 {
		return nil, fmt.Errorf("mm1: customers must be positive, got %d", params.Customers)
	}

	server := mm1.NewServer()
	mm1.Seed(d, server, params.Customers, core.Duration(params.IntervalNS), core.Duration(params.HoldNS))

	return func(finalTime core.Time) string {
		return fmt.Sprintf("mm1: served=%d utilization=%.4f", server.Served(), server.Utilization(finalTime))
	}, nil
}
