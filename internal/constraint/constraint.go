// Package constraint builds and evaluates XPBD constraints.
//
// Constraints are plain records tagged with a Kind and dispatched through a
// switch: distance (2 vertices), triangle volume (3) and environment
// collision (1). The whole-body volume constraint is a single scalar over
// all triangles and lives in VolumeSet.
package constraint

import (
	"fmt"

	"github.com/Faultbox/softbody/pkg/math"
)

// Kind identifies the constraint type.
type Kind uint8

// Constraint kinds.
const (
	KindDistance Kind = iota
	KindVolume
	KindEnvCollision
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDistance:
		return "distance"
	case KindVolume:
		return "volume"
	case KindEnvCollision:
		return "env-collision"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Arity returns the number of vertices a constraint of this kind involves.
func (k Kind) Arity() int {
	switch k {
	case KindDistance:
		return 2
	case KindVolume:
		return 3
	case KindEnvCollision:
		return 1
	default:
		return 0
	}
}

// degenerateLength is the edge length below which a distance gradient is treated as zero.
const degenerateLength = 1e-7

// Constraint is one scalar constraint C(x) = 0.
//
// Rest holds the rest length (distance) or rest volume contribution
// (triangle volume). Normal and Anchor are only used by plane collisions:
// C = dot(Normal, x[v] - Anchor). A collision with a Hull ignores them and
// uses the hull's nearest face instead.
type Constraint struct {
	Kind     Kind
	Vertices [3]int
	Rest     float32
	Normal   math.Vec3
	Anchor   math.Vec3
	Hull     *Hull
}

// Gradient holds the non-zero gradient entries of one constraint.
type Gradient struct {
	Vertices [3]int
	Grad     [3]math.Vec3
	N        int
}

// Evaluate returns C(x) and its gradient. pressure scales the rest volume of
// volume constraints and is ignored otherwise.
func (c *Constraint) Evaluate(x []math.Vec3, pressure float32) (float32, Gradient) {
	g := Gradient{Vertices: c.Vertices, N: c.Kind.Arity()}

	switch c.Kind {
	case KindDistance:
		d := x[c.Vertices[0]].Sub(x[c.Vertices[1]])
		l := d.Length()
		if l > degenerateLength {
			n := d.Scale(1 / l)
			g.Grad[0] = n
			g.Grad[1] = n.Neg()
		}
		return l - c.Rest, g

	case KindVolume:
		x1, x2, x3 := x[c.Vertices[0]], x[c.Vertices[1]], x[c.Vertices[2]]
		g.Grad[0] = x2.Cross(x3).Scale(1.0 / 6.0)
		g.Grad[1] = x3.Cross(x1).Scale(1.0 / 6.0)
		g.Grad[2] = x1.Cross(x2).Scale(1.0 / 6.0)
		return math.SignedTetraVolume(x1, x2, x3) - pressure*c.Rest, g

	case KindEnvCollision:
		p := x[c.Vertices[0]]
		if c.Hull != nil {
			d, i := c.Hull.Distance(p)
			if i >= 0 {
				g.Grad[0] = c.Hull.Planes[i].Normal
			}
			return d, g
		}
		g.Grad[0] = c.Normal
		return c.Normal.Dot(p.Sub(c.Anchor)), g
	}
	return 0, Gradient{}
}

// Hull is a closed static body seen as the intersection of the inner
// half-spaces of its face planes. A point penetrates only when it lies behind
// every plane. For a non-convex body this is a subset of the interior.
type Hull struct {
	Planes []Candidate
}

// Distance returns the largest signed distance of p to the hull planes and
// the index of that plane. It is negative only inside the hull, where the
// plane is the nearest face. An empty hull returns (0, -1).
func (h *Hull) Distance(p math.Vec3) (float32, int) {
	if len(h.Planes) == 0 {
		return 0, -1
	}
	best, idx := h.Planes[0].Distance(p), 0
	for i := 1; i < len(h.Planes); i++ {
		if d := h.Planes[i].Distance(p); d > best {
			best, idx = d, i
		}
	}
	return best, idx
}

// VolumeSet is the whole-body volume constraint:
// C = sum over triangles of (1/6) dot(cross(x1, x2), x3) - k*RestVolume.
type VolumeSet struct {
	Triangles  [][3]int
	RestVolume float32
	// Vertices lists every vertex referenced by Triangles, ascending.
	Vertices []int
}

// Evaluate returns C(x) and writes the gradient of every vertex in Vertices
// into grad, which must be at least len(x) long. Other entries are untouched.
func (v *VolumeSet) Evaluate(x []math.Vec3, pressure float32, grad []math.Vec3) float32 {
	for _, i := range v.Vertices {
		grad[i] = math.Vec3{}
	}

	var vol float32
	for _, t := range v.Triangles {
		x1, x2, x3 := x[t[0]], x[t[1]], x[t[2]]
		vol += math.SignedTetraVolume(x1, x2, x3)
		grad[t[0]] = grad[t[0]].AddScaled(x2.Cross(x3), 1.0/6.0)
		grad[t[1]] = grad[t[1]].AddScaled(x3.Cross(x1), 1.0/6.0)
		grad[t[2]] = grad[t[2]].AddScaled(x1.Cross(x2), 1.0/6.0)
	}
	return vol - pressure*v.RestVolume
}

// Volume returns the current enclosed volume without the pressure term.
func (v *VolumeSet) Volume(x []math.Vec3) float32 {
	var vol float32
	for _, t := range v.Triangles {
		vol += math.SignedTetraVolume(x[t[0]], x[t[1]], x[t[2]])
	}
	return vol
}
