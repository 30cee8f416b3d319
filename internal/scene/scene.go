// Package scene owns the simulated bodies and advances them frame by frame.
//
// Topologies and constraint sets live in scene-owned slices; bodies refer to
// them by index, so copying or dropping a body never leaves a dangling
// reference.
package scene

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/softbody/internal/body"
	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/internal/mesh"
	"github.com/Faultbox/softbody/internal/solver"
	"github.com/Faultbox/softbody/internal/topology"
	"github.com/Faultbox/softbody/pkg/math"
)

// Scene errors.
var (
	ErrEmptyMesh     = errors.New("scene: body has no mesh")
	ErrDuplicateBody = errors.New("scene: duplicate body name")
	ErrUnknownBody   = errors.New("scene: unknown body")
)

// DefaultGravity is the standard gravitational acceleration.
var DefaultGravity = math.V3(0, -9.81, 0)

// BodyID is the handle of a body in its scene.
type BodyID int

// BodySpec describes a body to add.
type BodySpec struct {
	Name   string
	Mesh   *mesh.Mesh
	Static bool

	// Transform places the mesh in the world once, at creation.
	Transform math.Mat4

	Mass   float32
	Pinned []int
}

// Options configures a new scene.
type Options struct {
	Gravity math.Vec3
	Solver  solver.Params
	// Volume is applied to every closed dynamic body.
	Volume constraint.Options
	Logger *zap.Logger
}

// DefaultOptions returns the options of the reference scene.
func DefaultOptions() Options {
	return Options{
		Gravity: DefaultGravity,
		Solver:  solver.DefaultParams(),
	}
}

// Scene is an ordered collection of bodies sharing one solver and gravity.
type Scene struct {
	Name    string
	Gravity math.Vec3
	Camera  *OrbitCamera

	solver *solver.Solver
	volume constraint.Options
	log    *zap.Logger

	// Arena storage
	topologies  []*topology.Topology
	constraints []*constraint.Set
	bodies      []*body.Body
	names       map[string]BodyID

	frame uint64
}

// New creates an empty scene.
func New(name string, opts Options) (*Scene, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	sol, err := solver.New(opts.Solver, log.Named("solver"))
	if err != nil {
		return nil, err
	}

	return &Scene{
		Name:    name,
		Gravity: opts.Gravity,
		Camera:  NewOrbitCamera(),
		solver:  sol,
		volume:  opts.Volume,
		log:     log,
		names:   make(map[string]BodyID),
	}, nil
}

// AddBody builds a body's topology and constraints and registers it.
func (s *Scene) AddBody(spec BodySpec) (BodyID, error) {
	if spec.Mesh == nil || len(spec.Mesh.Triangles) == 0 {
		return -1, fmt.Errorf("%w: %q", ErrEmptyMesh, spec.Name)
	}
	if spec.Name == "" {
		spec.Name = fmt.Sprintf("body%d", len(s.bodies))
	}
	if _, ok := s.names[spec.Name]; ok {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateBody, spec.Name)
	}

	topo, err := topology.Build(spec.Mesh.Positions(), spec.Mesh.Triangles)
	if err != nil {
		return -1, fmt.Errorf("body %q: %w", spec.Name, err)
	}

	b, err := body.New(body.Spec{
		Name:      spec.Name,
		Static:    spec.Static,
		Transform: spec.Transform,
		Mass:      spec.Mass,
		Pinned:    spec.Pinned,
	}, topo)
	if err != nil {
		return -1, fmt.Errorf("body %q: %w", spec.Name, err)
	}

	set := &constraint.Set{Pressure: 1}
	if !spec.Static {
		opts := s.volume
		if !topo.IsClosed() {
			opts.NoVolume = true
		}
		set = constraint.NewSet(topo, b.Positions, opts)
	}

	s.topologies = append(s.topologies, topo)
	b.TopologyID = len(s.topologies) - 1
	s.constraints = append(s.constraints, set)
	b.ConstraintsID = len(s.constraints) - 1

	id := BodyID(len(s.bodies))
	s.bodies = append(s.bodies, b)
	s.names[spec.Name] = id

	s.log.Debug("body added",
		zap.String("body", spec.Name),
		zap.Bool("static", spec.Static),
		zap.Int("vertices", topo.VertexCount()),
		zap.Int("corners", topo.CornerCount()),
		zap.Int("edges", len(topo.Edges)),
		zap.Int("triangles", len(topo.Triangles)),
		zap.Bool("closed", topo.IsClosed()),
	)
	return id, nil
}

// Len returns the number of bodies.
func (s *Scene) Len() int {
	return len(s.bodies)
}

// Body returns a body by handle.
func (s *Scene) Body(id BodyID) (*body.Body, error) {
	if id < 0 || int(id) >= len(s.bodies) {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownBody, id)
	}
	return s.bodies[id], nil
}

// Lookup returns the handle of a named body.
func (s *Scene) Lookup(name string) (BodyID, bool) {
	id, ok := s.names[name]
	return id, ok
}

// Topology returns the topology of a body.
func (s *Scene) Topology(id BodyID) (*topology.Topology, error) {
	b, err := s.Body(id)
	if err != nil {
		return nil, err
	}
	return s.topologies[b.TopologyID], nil
}

// Constraints returns the constraint set of a body.
func (s *Scene) Constraints(id BodyID) (*constraint.Set, error) {
	b, err := s.Body(id)
	if err != nil {
		return nil, err
	}
	return s.constraints[b.ConstraintsID], nil
}

// BuildCollisions gives every dynamic body its environment collisions from
// the static bodies at their current positions. An open static surface adds
// one constraint per (vertex, face plane); coplanar faces share a plane. A
// closed static body becomes one hull per vertex, penetrated only from
// inside. Call it once after all bodies are added. It returns the number of
// collision constraints created.
func (s *Scene) BuildCollisions() int {
	var normals, points []math.Vec3
	var hulls []*constraint.Hull
	for _, other := range s.bodies {
		if !other.Static {
			continue
		}
		topo := s.topologies[other.TopologyID]
		faceNormals := topo.FaceNormals(other.Positions)
		facePoints := make([]math.Vec3, len(topo.Triangles))
		for i, t := range topo.Triangles {
			facePoints[i] = other.Positions[t[0]]
		}

		if !topo.IsClosed() {
			normals = append(normals, faceNormals...)
			points = append(points, facePoints...)
			continue
		}
		// Inward winding
		if topo.Volume(other.Positions) < 0 {
			for i := range faceNormals {
				faceNormals[i] = faceNormals[i].Neg()
			}
		}
		hulls = append(hulls, constraint.NewHull(faceNormals, facePoints))
	}
	candidates := constraint.Candidates(normals, points)

	total := 0
	for _, b := range s.bodies {
		if b.Static {
			continue
		}
		set := s.constraints[b.ConstraintsID]
		set.SetCollisions(b.VertexCount(), candidates, hulls...)
		total += len(set.Collision)
	}

	s.log.Debug("collisions built",
		zap.Int("planes", len(candidates)),
		zap.Int("hulls", len(hulls)),
		zap.Int("constraints", total),
	)
	return total
}

// Update advances every dynamic body by dt in insertion order and syncs its
// render corners. Static bodies are not touched.
func (s *Scene) Update(dt float32) (solver.Report, error) {
	var total solver.Report
	for _, b := range s.bodies {
		if b.Static {
			continue
		}

		b.SetAcceleration(s.Gravity)
		r, err := s.solver.Step(b, s.constraints[b.ConstraintsID], dt)
		if err != nil {
			return total, fmt.Errorf("body %q: %w", b.Name, err)
		}
		total.Merge(r)

		if err := b.Sync(s.topologies[b.TopologyID]); err != nil {
			return total, fmt.Errorf("body %q: %w", b.Name, err)
		}
	}
	s.frame++
	return total, nil
}

// Frame returns the number of completed updates.
func (s *Scene) Frame() uint64 {
	return s.frame
}

// Tunables are the parameters that may change while the scene runs.
type Tunables struct {
	Gravity math.Vec3
	Alpha   float32
	Beta    float32
}

// Tunables returns the current live parameters.
func (s *Scene) Tunables() Tunables {
	p := s.solver.Params()
	return Tunables{Gravity: s.Gravity, Alpha: p.Alpha, Beta: p.Beta}
}

// SetTunables updates gravity, compliance and damping. Call it between
// frames. Invalid values leave the scene unchanged.
func (s *Scene) SetTunables(t Tunables) error {
	if !t.Gravity.IsFinite() {
		return fmt.Errorf("%w: gravity %v", solver.ErrInvalidParams, t.Gravity)
	}
	p := s.solver.Params()
	p.Alpha = t.Alpha
	p.Beta = t.Beta
	if err := s.solver.SetParams(p); err != nil {
		return err
	}
	s.Gravity = t.Gravity

	g := t.Gravity.Array()
	s.log.Info("tunables updated",
		zap.Float32("alpha", t.Alpha),
		zap.Float32("beta", t.Beta),
		zap.Float32s("gravity", g[:]),
	)
	return nil
}

// SolverParams returns the full solver parameters.
func (s *Scene) SolverParams() solver.Params {
	return s.solver.Params()
}

// SetSolverParams replaces the full solver parameters.
func (s *Scene) SetSolverParams(p solver.Params) error {
	return s.solver.SetParams(p)
}

// Bounds returns the bounding box of every body's current positions.
func (s *Scene) Bounds() (lo, hi math.Vec3) {
	first := true
	for _, b := range s.bodies {
		for _, p := range b.Positions {
			if first {
				lo, hi = p, p
				first = false
				continue
			}
			lo = math.V3(math32.Min(lo.X, p.X), math32.Min(lo.Y, p.Y), math32.Min(lo.Z, p.Z))
			hi = math.V3(math32.Max(hi.X, p.X), math32.Max(hi.Y, p.Y), math32.Max(hi.Z, p.Z))
		}
	}
	return lo, hi
}
