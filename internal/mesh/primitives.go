package mesh

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chewxy/math32"

	"github.com/Faultbox/softbody/pkg/math"
)

// Primitive names accepted by Primitive.
const (
	PrimitiveCube        = "cube"
	PrimitivePlane       = "plane"
	PrimitiveTetrahedron = "tetrahedron"
	PrimitiveIcoSphere   = "icosphere"
)

var primitives = map[string]func(size float32) *Mesh{
	PrimitiveCube:        Cube,
	PrimitivePlane:       Plane,
	PrimitiveTetrahedron: Tetrahedron,
	PrimitiveIcoSphere:   func(size float32) *Mesh { return IcoSphere(size/2, 1) },
}

// PrimitiveNames returns the sorted list of built-in primitive names.
func PrimitiveNames() []string {
	names := make([]string, 0, len(primitives))
	for name := range primitives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsPrimitive reports whether name refers to a built-in primitive.
func IsPrimitive(name string) bool {
	_, ok := primitives[strings.ToLower(name)]
	return ok
}

// Primitive builds the named primitive with the given edge length or diameter.
func Primitive(name string, size float32) (*Mesh, error) {
	fn, ok := primitives[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown primitive %q (have %s)", name, strings.Join(PrimitiveNames(), ", "))
	}
	if size <= 0 {
		size = 1
	}
	return fn(size), nil
}

// Cube returns an axis-aligned cube centred at the origin: 24 corners over 8 positions.
func Cube(size float32) *Mesh {
	h := size / 2
	b := newBuilder(PrimitiveCube)

	x := math.Vec3{X: h}
	y := math.Vec3{Y: h}
	z := math.Vec3{Z: h}

	// Each face is (normal, u, v) with u x v = normal.
	faces := [][3]math.Vec3{
		{x, y, z},
		{x.Neg(), z, y},
		{y, z, x},
		{y.Neg(), x, z},
		{z, x, y},
		{z.Neg(), y, x},
	}
	for _, f := range faces {
		c, u, v := f[0], f[1], f[2]
		b.quad(
			c.Sub(u).Sub(v),
			c.Add(u).Sub(v),
			c.Add(u).Add(v),
			c.Sub(u).Add(v),
		)
	}
	return b.build()
}

// Plane returns a square in the XZ plane at y=0 facing +Y.
func Plane(size float32) *Mesh {
	h := size / 2
	b := newBuilder(PrimitivePlane)
	b.quad(
		math.Vec3{X: -h, Z: -h},
		math.Vec3{X: -h, Z: h},
		math.Vec3{X: h, Z: h},
		math.Vec3{X: h, Z: -h},
	)
	return b.build()
}

// Tetrahedron returns a regular tetrahedron centred at the origin with the given edge length.
func Tetrahedron(size float32) *Mesh {
	// Alternate cube corners form a regular tetrahedron with edge 2*sqrt(2).
	s := size / (2 * math32.Sqrt(2))
	p := []math.Vec3{
		{X: s, Y: s, Z: s},
		{X: s, Y: -s, Z: -s},
		{X: -s, Y: s, Z: -s},
		{X: -s, Y: -s, Z: s},
	}
	b := newBuilder(PrimitiveTetrahedron)
	b.outward(p[0], p[1], p[2])
	b.outward(p[0], p[1], p[3])
	b.outward(p[0], p[2], p[3])
	b.outward(p[1], p[2], p[3])
	return b.build()
}

// IcoSphere returns a flat-shaded subdivided icosahedron of the given radius.
func IcoSphere(radius float32, subdivisions int) *Mesh {
	t := (1 + math32.Sqrt(5)) / 2
	verts := []math.Vec3{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i := range verts {
		verts[i] = verts[i].Normalize()
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for s := 0; s < subdivisions; s++ {
		cache := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{min(a, b), max(a, b)}
			if idx, ok := cache[key]; ok {
				return idx
			}
			verts = append(verts, verts[a].Add(verts[b]).Normalize())
			cache[key] = len(verts) - 1
			return len(verts) - 1
		}

		next := make([][3]int, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}

	b := newBuilder(PrimitiveIcoSphere)
	for _, f := range faces {
		b.outward(verts[f[0]].Scale(radius), verts[f[1]].Scale(radius), verts[f[2]].Scale(radius))
	}
	return b.build()
}
