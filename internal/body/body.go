// Package body holds the per-vertex state of a simulated body.
package body

import (
	"errors"
	"fmt"

	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/internal/topology"
	"github.com/Faultbox/softbody/pkg/math"
)

// Body errors.
var (
	ErrNoVertices     = errors.New("body: topology has no vertices")
	ErrInvalidMass    = errors.New("body: mass must be positive and finite")
	ErrInvMassLength  = errors.New("body: inverse mass count does not match vertex count")
	ErrPinOutOfRange  = errors.New("body: pinned vertex out of range")
	ErrNonFiniteState = errors.New("body: non-finite rest position")
)

// Spec describes how a body is instantiated from its rest mesh.
type Spec struct {
	Name   string
	Static bool

	// Transform places the local rest positions in the world, applied once.
	// The zero matrix means identity.
	Transform math.Mat4

	// Mass is the total mass spread uniformly over vertices. Zero means one
	// unit per vertex. Ignored when InvMass is set.
	Mass float32
	// InvMass optionally sets each vertex's inverse mass explicitly.
	InvMass []float32
	// Pinned vertices get inverse mass 0 and never move.
	Pinned []int
}

// Body is a set of point masses plus the handles of its topology and
// constraints in the owning scene.
type Body struct {
	Name   string
	Static bool

	// Per-vertex state, indexed by unique vertex
	Positions     []math.Vec3
	Velocities    []math.Vec3 // nil for static bodies
	Accelerations []math.Vec3 // nil for static bodies
	InvMass       []float32

	// Lagrange multipliers, one per scalar constraint. Reset every substep.
	Lambda []float32

	// Arena handles into the owning scene
	TopologyID    int
	ConstraintsID int

	// Render-facing output, indexed by render corner
	Corners []math.Vec3
	Normals []math.Vec3

	// Model is the render model matrix. Positions are already world-space.
	Model math.Mat4
}

// New creates a body from a topology, world-transforming the rest positions once.
func New(spec Spec, topo *topology.Topology) (*Body, error) {
	n := topo.VertexCount()
	if n == 0 {
		return nil, ErrNoVertices
	}

	transform := spec.Transform
	if transform == (math.Mat4{}) {
		transform = math.Identity()
	}

	b := &Body{
		Name:      spec.Name,
		Static:    spec.Static,
		Positions: transform.TransformAll(topo.Positions),
		Corners:   make([]math.Vec3, topo.CornerCount()),
		Normals:   make([]math.Vec3, topo.CornerCount()),
		Model:     math.Identity(),
	}
	for i, p := range b.Positions {
		if !p.IsFinite() {
			return nil, fmt.Errorf("%w: vertex %d", ErrNonFiniteState, i)
		}
	}

	invMass, err := inverseMasses(spec, n)
	if err != nil {
		return nil, err
	}
	b.InvMass = invMass

	if !spec.Static {
		b.Velocities = make([]math.Vec3, n)
		b.Accelerations = make([]math.Vec3, n)
	}

	if err := b.Sync(topo); err != nil {
		return nil, err
	}
	return b, nil
}

func inverseMasses(spec Spec, n int) ([]float32, error) {
	inv := make([]float32, n)

	switch {
	case spec.InvMass != nil:
		if len(spec.InvMass) != n {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrInvMassLength, len(spec.InvMass), n)
		}
		for i, w := range spec.InvMass {
			if !math.IsFinite(w) || w < 0 {
				return nil, fmt.Errorf("%w: inverse mass %v at vertex %d", ErrInvalidMass, w, i)
			}
		}
		copy(inv, spec.InvMass)

	default:
		w := float32(1)
		if spec.Mass != 0 {
			if !math.IsFinite(spec.Mass) || spec.Mass < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidMass, spec.Mass)
			}
			w = float32(n) / spec.Mass
		}
		for i := range inv {
			inv[i] = w
		}
	}

	for _, p := range spec.Pinned {
		if p < 0 || p >= n {
			return nil, fmt.Errorf("%w: %d of %d", ErrPinOutOfRange, p, n)
		}
		inv[p] = 0
	}
	return inv, nil
}

// VertexCount returns the number of simulated point masses.
func (b *Body) VertexCount() int {
	return len(b.Positions)
}

// SetAcceleration sets every vertex's acceleration. Static bodies are left untouched.
func (b *Body) SetAcceleration(a math.Vec3) {
	for i := range b.Accelerations {
		b.Accelerations[i] = a
	}
}

// Sync mirrors the simulated positions into every render corner and
// recomputes flat per-corner normals.
func (b *Body) Sync(topo *topology.Topology) error {
	if err := topo.Mirror(b.Positions, b.Corners); err != nil {
		return err
	}
	topo.FlatNormals(b.Positions, b.Normals)
	return nil
}

// RenderVertices returns the per-corner positions. Callers must not modify them.
func (b *Body) RenderVertices() []math.Vec3 {
	return b.Corners
}

// Volume returns the current enclosed volume of the body's volume constraint,
// or 0 when the set has none.
func (b *Body) Volume(set *constraint.Set) float32 {
	if set.Body != nil {
		return set.Body.Volume(b.Positions)
	}
	var v float32
	for _, c := range set.Volume {
		v += math.SignedTetraVolume(b.Positions[c.Vertices[0]], b.Positions[c.Vertices[1]], b.Positions[c.Vertices[2]])
	}
	return v
}

// Energy returns the kinetic and gravitational potential energy of the body.
// Pinned vertices carry no energy. Potential energy is measured from y = 0.
func (b *Body) Energy(gravity math.Vec3) (kinetic, potential float32) {
	for i, w := range b.InvMass {
		if w == 0 {
			continue
		}
		m := 1 / w
		if b.Velocities != nil {
			kinetic += 0.5 * m * b.Velocities[i].LengthSq()
		}
		potential -= m * gravity.Dot(b.Positions[i])
	}
	return kinetic, potential
}

// Centroid returns the mean vertex position.
func (b *Body) Centroid() math.Vec3 {
	var c math.Vec3
	for _, p := range b.Positions {
		c = c.Add(p)
	}
	return c.Scale(1 / float32(len(b.Positions)))
}
