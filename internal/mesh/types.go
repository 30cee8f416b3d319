// Package mesh provides render meshes for simulated bodies: built-in
// primitives and meshes loaded from OBJ files.
package mesh

import (
	"github.com/Faultbox/softbody/pkg/math"
)

// Vertex is one render corner with position, normal, and texture coordinates.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	TexCoord [2]float32
}

// Mesh holds triangulated geometry. Corners that share a position but not
// a normal or texcoord are separate vertices.
type Mesh struct {
	Name      string
	Vertices  []Vertex
	Triangles [][3]uint32
	Bounds    Bounds
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Size returns the extent along each axis.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Positions returns the corner positions in vertex order.
func (m *Mesh) Positions() []math.Vec3 {
	out := make([]math.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Position
	}
	return out
}

// computeBounds recalculates Bounds from the vertex positions.
func (m *Mesh) computeBounds() {
	if len(m.Vertices) == 0 {
		m.Bounds = Bounds{}
		return
	}
	b := Bounds{Min: m.Vertices[0].Position, Max: m.Vertices[0].Position}
	for _, v := range m.Vertices[1:] {
		p := v.Position
		b.Min = math.Vec3{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
		b.Max = math.Vec3{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
	}
	m.Bounds = b
}

// builder accumulates flat-shaded faces, one set of corners per face.
type builder struct {
	mesh *Mesh
}

func newBuilder(name string) *builder {
	return &builder{mesh: &Mesh{Name: name}}
}

// quad adds a planar quad given counter-clockwise corners seen from outside.
func (b *builder) quad(p0, p1, p2, p3 math.Vec3) {
	n := math.TriangleNormal(p0, p1, p2)
	base := uint32(len(b.mesh.Vertices))
	b.mesh.Vertices = append(b.mesh.Vertices,
		Vertex{Position: p0, Normal: n, TexCoord: [2]float32{0, 0}},
		Vertex{Position: p1, Normal: n, TexCoord: [2]float32{1, 0}},
		Vertex{Position: p2, Normal: n, TexCoord: [2]float32{1, 1}},
		Vertex{Position: p3, Normal: n, TexCoord: [2]float32{0, 1}},
	)
	b.mesh.Triangles = append(b.mesh.Triangles,
		[3]uint32{base, base + 1, base + 2},
		[3]uint32{base, base + 2, base + 3},
	)
}

// triangle adds a triangle wound counter-clockwise seen from outside.
func (b *builder) triangle(p0, p1, p2 math.Vec3) {
	n := math.TriangleNormal(p0, p1, p2)
	base := uint32(len(b.mesh.Vertices))
	b.mesh.Vertices = append(b.mesh.Vertices,
		Vertex{Position: p0, Normal: n, TexCoord: [2]float32{0, 0}},
		Vertex{Position: p1, Normal: n, TexCoord: [2]float32{1, 0}},
		Vertex{Position: p2, Normal: n, TexCoord: [2]float32{0.5, 1}},
	)
	b.mesh.Triangles = append(b.mesh.Triangles, [3]uint32{base, base + 1, base + 2})
}

// outward adds a triangle of a convex solid centred at the origin,
// flipping the winding if needed so its normal points away from the centre.
func (b *builder) outward(p0, p1, p2 math.Vec3) {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	centroid := p0.Add(p1).Add(p2)
	if n.Dot(centroid) < 0 {
		p1, p2 = p2, p1
	}
	b.triangle(p0, p1, p2)
}

func (b *builder) build() *Mesh {
	b.mesh.computeBounds()
	return b.mesh
}
