// Package sim wires configuration, meshes and the scene into a runnable
// simulation.
package sim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/softbody/internal/config"
	"github.com/Faultbox/softbody/internal/mesh"
	"github.com/Faultbox/softbody/internal/scene"
	"github.com/Faultbox/softbody/pkg/math"
)

// BuildScene loads every configured body, derives its constraints and the
// collision candidates, and points the camera at the result.
func BuildScene(cfg *config.Config, log *zap.Logger) (*scene.Scene, error) {
	if log == nil {
		log = zap.NewNop()
	}

	volume, err := VolumeOptions(cfg.Simulation)
	if err != nil {
		return nil, err
	}

	s, err := scene.New(cfg.Scene.Name, scene.Options{
		Gravity: math.FromArray(cfg.Simulation.Gravity),
		Solver:  SolverParams(cfg.Simulation),
		Volume:  volume,
		Logger:  log.Named("scene"),
	})
	if err != nil {
		return nil, err
	}

	for i, bc := range cfg.Scene.Bodies {
		m, err := mesh.Load(bc.Mesh, bc.Size)
		if err != nil {
			return nil, fmt.Errorf("scene.bodies[%d]: %w", i, err)
		}

		if _, err := s.AddBody(scene.BodySpec{
			Name:      bc.Name,
			Mesh:      m,
			Static:    bc.Static,
			Transform: Transform(bc),
			Mass:      bc.Mass,
			Pinned:    bc.Pinned,
		}); err != nil {
			return nil, fmt.Errorf("scene.bodies[%d]: %w", i, err)
		}
	}

	collisions := s.BuildCollisions()
	s.Camera.FitToBounds(s.Bounds())

	log.Info("scene built",
		zap.String("scene", s.Name),
		zap.Int("bodies", s.Len()),
		zap.Int("collision_constraints", collisions),
	)
	return s, nil
}
