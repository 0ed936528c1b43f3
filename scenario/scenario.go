// Package scenario loads a run's bootstrap configuration from a YAML file,
// mirroring the teacher CLI's configs/network_scenario.json ->
// core.LoadNetworkScenario pattern but in the kernel's own domain: which
// built-in model to seed, how long to run, an RNG seed, and which optional
// statistics/tracing features to turn on for the run.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/primemover/core"
)

// Config is one runnable scenario: a named built-in model plus the
// parameters and tracking flags that govern how it is run.
type Config struct {
	Name string `yaml:"name"`
	// Model selects which registered model to seed (see cmd/primemover's
	// model registry); "mm1" is the only one shipped with this module.
	Model string `yaml:"model"`

	EndTimeNS int64  `yaml:"end_time_ns"`
	Seed      uint64 `yaml:"seed"`

	TrackEventSources bool `yaml:"track_event_sources"`
	DebugEvents       bool `yaml:"debug_events"`

	MM1 *MM1Params `yaml:"mm1,omitempty"`
}

// MM1Params parameterizes examples/mm1's queue: how many customers arrive,
// how far apart, and how long each holds the server.
type MM1Params struct {
	Customers  int   `yaml:"customers"`
	IntervalNS int64 `yaml:"interval_ns"`
	HoldNS     int64 `yaml:"hold_ns"`
}

// EndTime returns the configured end time as a core.Time, or core.Never if
// unset.
func (c Config) EndTime() core.Time {
	if c.EndTimeNS <= 0 {
		return core.Never
	}
	return core.Time(c.EndTimeNS)
}

// Load reads and parses a scenario file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("scenario: parsing %s: %w", path, err)
	}
	if cfg.Model == "" {
		cfg.Model = "mm1"
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Model
	}
	return &cfg, nil
}
