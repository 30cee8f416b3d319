package constraint

import (
	"sort"

	"github.com/chewxy/math32"

	"github.com/Faultbox/softbody/internal/topology"
	"github.com/Faultbox/softbody/pkg/math"
)

// Options controls which categories NewSet derives.
type Options struct {
	Granularity Granularity
	// Pressure scales the rest volume. Zero means 1.
	Pressure float32
	// NoVolume disables volume constraints, for open meshes.
	NoVolume bool
}

// NewSet derives distance and volume constraints from a topology and the
// body's world-space rest positions. Collision constraints are added later
// with SetCollisions once every body of the scene is known.
func NewSet(topo *topology.Topology, rest []math.Vec3, opts Options) *Set {
	s := &Set{
		Distance:    Distances(topo.Edges, rest),
		Pressure:    opts.Pressure,
		Granularity: opts.Granularity,
	}
	if s.Pressure == 0 {
		s.Pressure = 1
	}
	if opts.NoVolume {
		return s
	}

	switch opts.Granularity {
	case GranularityTriangle:
		s.Volume = TriangleVolumes(topo.Triangles, rest)
	default:
		s.Body = BodyVolume(topo.Triangles, rest)
	}
	return s
}

// Distances emits one distance constraint per edge with the rest length
// measured in rest.
func Distances(edges []topology.Edge, rest []math.Vec3) []Constraint {
	out := make([]Constraint, 0, len(edges))
	for _, e := range edges {
		out = append(out, Constraint{
			Kind:     KindDistance,
			Vertices: [3]int{e.V1, e.V2, -1},
			Rest:     rest[e.V1].Distance(rest[e.V2]),
		})
	}
	return out
}

// BodyVolume builds the whole-body volume constraint. The rest volume is the
// divergence-theorem sum over all triangles.
func BodyVolume(triangles []topology.Triangle, rest []math.Vec3) *VolumeSet {
	v := &VolumeSet{Triangles: make([][3]int, len(triangles))}

	seen := make(map[int]struct{})
	for i, t := range triangles {
		v.Triangles[i] = [3]int(t)
		for _, idx := range t {
			if _, ok := seen[idx]; !ok {
				seen[idx] = struct{}{}
				v.Vertices = append(v.Vertices, idx)
			}
		}
	}
	sort.Ints(v.Vertices)
	v.RestVolume = v.Volume(rest)
	return v
}

// TriangleVolumes emits one volume constraint per triangle, each with its own
// rest contribution.
func TriangleVolumes(triangles []topology.Triangle, rest []math.Vec3) []Constraint {
	out := make([]Constraint, 0, len(triangles))
	for _, t := range triangles {
		out = append(out, Constraint{
			Kind:     KindVolume,
			Vertices: [3]int(t),
			Rest:     math.SignedTetraVolume(rest[t[0]], rest[t[1]], rest[t[2]]),
		})
	}
	return out
}

// Candidate is a collision half-space: points p with dot(Normal, p-Point) < 0
// are penetrating.
type Candidate struct {
	Normal math.Vec3
	Point  math.Vec3
}

// Distance returns the signed distance of p to the plane.
func (c Candidate) Distance(p math.Vec3) float32 {
	return c.Normal.Dot(p.Sub(c.Point))
}

// planeQuantum is the resolution used to merge candidates lying on the same plane.
const planeQuantum = 1e-4

type planeKey [4]int32

func keyOf(n math.Vec3, offset float32) planeKey {
	q := func(f float32) int32 { return int32(math32.Round(f / planeQuantum)) }
	return planeKey{q(n.X), q(n.Y), q(n.Z), q(offset)}
}

// Candidates turns face normals and one point on each face into collision
// candidates. Faces sharing a plane are merged and degenerate normals dropped.
func Candidates(normals, points []math.Vec3) []Candidate {
	seen := make(map[planeKey]struct{}, len(normals))
	out := make([]Candidate, 0, len(normals))
	for i, n := range normals {
		if n.LengthSq() == 0 || !n.IsFinite() || !points[i].IsFinite() {
			continue
		}
		n = n.Normalize()
		k := keyOf(n, n.Dot(points[i]))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, Candidate{Normal: n, Point: points[i]})
	}
	return out
}

// Collisions emits one environment-collision constraint per
// (vertex, candidate) pair.
func Collisions(vertexCount int, candidates []Candidate) []Constraint {
	out := make([]Constraint, 0, vertexCount*len(candidates))
	for v := 0; v < vertexCount; v++ {
		for _, c := range candidates {
			out = append(out, Constraint{
				Kind:     KindEnvCollision,
				Vertices: [3]int{v, -1, -1},
				Normal:   c.Normal,
				Anchor:   c.Point,
			})
		}
	}
	return out
}

// NewHull merges the face planes of a closed body into a hull. normals must
// point outward.
func NewHull(normals, points []math.Vec3) *Hull {
	return &Hull{Planes: Candidates(normals, points)}
}

// HullCollisions emits one environment-collision constraint per
// (vertex, hull) pair.
func HullCollisions(vertexCount int, hulls []*Hull) []Constraint {
	out := make([]Constraint, 0, vertexCount*len(hulls))
	for v := 0; v < vertexCount; v++ {
		for _, h := range hulls {
			out = append(out, Constraint{
				Kind:     KindEnvCollision,
				Vertices: [3]int{v, -1, -1},
				Hull:     h,
			})
		}
	}
	return out
}

// SetCollisions replaces the collision category: plane constraints for the
// open candidates first, then hull constraints.
func (s *Set) SetCollisions(vertexCount int, candidates []Candidate, hulls ...*Hull) {
	s.Collision = append(Collisions(vertexCount, candidates), HullCollisions(vertexCount, hulls)...)
	s.Invalidate()
}
