package config

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"go.uber.org/multierr"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Accepted enum values.
var (
	volumeGranularities = []string{"", "body", "triangle"}
	logLevels           = []string{"", "debug", "info", "warn", "error"}
)

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks the whole config and reports every problem at once.
func (c *Config) Validate() error {
	var errs error
	add := func(err error) { errs = multierr.Append(errs, err) }

	sim := c.Simulation
	for i, g := range sim.Gravity {
		if !finite(g) {
			add(invalid("simulation.gravity[%d] is not finite", i))
		}
	}
	if sim.Substeps < 1 {
		add(invalid("simulation.substeps must be >= 1, got %d", sim.Substeps))
	}
	if sim.Iterations < 1 {
		add(invalid("simulation.iterations must be >= 1, got %d", sim.Iterations))
	}
	if !finite(sim.Alpha) || sim.Alpha < 0 {
		add(invalid("simulation.alpha must be >= 0, got %v", sim.Alpha))
	}
	if !finite(sim.Beta) || sim.Beta < 0 {
		add(invalid("simulation.beta must be >= 0, got %v", sim.Beta))
	}
	if !finite(sim.Pressure) || sim.Pressure <= 0 {
		add(invalid("simulation.pressure must be > 0, got %v", sim.Pressure))
	}
	if !slices.Contains(volumeGranularities, sim.VolumeGranularity) {
		add(invalid("simulation.volume_granularity must be body or triangle, got %q", sim.VolumeGranularity))
	}

	if len(c.Scene.Bodies) == 0 {
		add(invalid("scene has no bodies"))
	}
	names := make(map[string]int)
	for i, b := range c.Scene.Bodies {
		label := fmt.Sprintf("scene.bodies[%d]", i)
		if b.Name != "" {
			label = fmt.Sprintf("scene.bodies[%d] (%s)", i, b.Name)
			if j, ok := names[b.Name]; ok {
				add(invalid("%s: name already used by scene.bodies[%d]", label, j))
			}
			names[b.Name] = i
		}
		if b.Mesh == "" {
			add(invalid("%s: mesh is required", label))
		}
		if !finite(b.Size) || b.Size < 0 {
			add(invalid("%s: size must be >= 0, got %v", label, b.Size))
		}
		if b.Mass < 0 {
			add(invalid("%s: mass must be >= 0, got %v", label, b.Mass))
		}
		for _, p := range b.Pinned {
			if p < 0 {
				add(invalid("%s: pinned vertex %d is negative", label, p))
			}
		}
	}

	if c.Run.FPS <= 0 {
		add(invalid("run.fps must be > 0, got %d", c.Run.FPS))
	}
	if c.Run.Duration < 0 {
		add(invalid("run.duration must be >= 0, got %s", c.Run.Duration.Std()))
	}
	if c.Run.StatsEvery < 0 {
		add(invalid("run.stats_every must be >= 0, got %d", c.Run.StatsEvery))
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		add(invalid("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}
	return errs
}
