package sim

import (
	"github.com/Faultbox/softbody/internal/config"
	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/internal/scene"
	"github.com/Faultbox/softbody/internal/solver"
	"github.com/Faultbox/softbody/pkg/math"
)

// SolverParams converts the simulation settings into solver parameters.
func SolverParams(c config.SimulationConfig) solver.Params {
	p := solver.Params{
		Substeps:   c.Substeps,
		Iterations: c.Iterations,
		Alpha:      c.Alpha,
		Beta:       c.Beta,
		Mode:       solver.ModeGaussSeidel,
		Categories: solver.Categories{
			Distance:  c.EnableDistance,
			Volume:    c.EnableVolume,
			Collision: c.EnableCollision,
		},
		DebugAbort: c.DebugAbort,
	}
	if c.Jacobi {
		p.Mode = solver.ModeJacobi
	}
	return p
}

// VolumeOptions converts the volume settings into constraint options.
func VolumeOptions(c config.SimulationConfig) (constraint.Options, error) {
	g, err := constraint.ParseGranularity(c.VolumeGranularity)
	if err != nil {
		return constraint.Options{}, err
	}
	return constraint.Options{Granularity: g, Pressure: c.Pressure}, nil
}

// Tunables returns the live-reloadable subset of the settings.
func Tunables(c config.SimulationConfig) scene.Tunables {
	return scene.Tunables{Gravity: math.FromArray(c.Gravity), Alpha: c.Alpha, Beta: c.Beta}
}

// Transform returns a body's placement matrix: scale, then rotation, then
// translation.
func Transform(b config.BodyConfig) math.Mat4 {
	scale := math.FromArray(b.Scale)
	if scale == (math.Vec3{}) {
		scale = math.V3(1, 1, 1)
	}
	rot := math.QuatFromEulerDegrees(b.Rotation[0], b.Rotation[1], b.Rotation[2])
	return math.TRS(math.FromArray(b.Position), rot, scale)
}
