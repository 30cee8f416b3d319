package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/softbody/pkg/math"
)

func signedVolume(m *Mesh) float32 {
	var v float32
	for _, tri := range m.Triangles {
		v += math.SignedTetraVolume(
			m.Vertices[tri[0]].Position,
			m.Vertices[tri[1]].Position,
			m.Vertices[tri[2]].Position,
		)
	}
	return v
}

func uniquePositions(m *Mesh) int {
	seen := make(map[math.Vec3]struct{})
	for _, v := range m.Vertices {
		seen[v.Position] = struct{}{}
	}
	return len(seen)
}

func TestCube(t *testing.T) {
	m := Cube(2)

	assert.Len(t, m.Vertices, 24)
	assert.Len(t, m.Triangles, 12)
	assert.Equal(t, 8, uniquePositions(m))
	assert.InDelta(t, 8.0, signedVolume(m), 1e-5, "outward winding gives positive volume")
	assert.Equal(t, math.Vec3{X: -1, Y: -1, Z: -1}, m.Bounds.Min)
	assert.Equal(t, math.Vec3{X: 1, Y: 1, Z: 1}, m.Bounds.Max)
}

func TestCubeNormalsPointOutward(t *testing.T) {
	m := Cube(1)
	for i, v := range m.Vertices {
		if v.Normal.Dot(v.Position) <= 0 {
			t.Errorf("vertex %d normal %v points inward at %v", i, v.Normal, v.Position)
		}
	}
}

func TestPlane(t *testing.T) {
	m := Plane(10)

	assert.Len(t, m.Vertices, 4)
	assert.Len(t, m.Triangles, 2)
	for _, v := range m.Vertices {
		assert.Equal(t, math.Vec3{Y: 1}, v.Normal)
		assert.Equal(t, float32(0), v.Position.Y)
	}
	assert.Equal(t, math.Vec3{X: 10, Y: 0, Z: 10}, m.Bounds.Size())
}

func TestTetrahedron(t *testing.T) {
	m := Tetrahedron(1)

	assert.Len(t, m.Vertices, 12)
	assert.Equal(t, 4, uniquePositions(m))

	// Regular tetrahedron volume is a^3 / (6*sqrt(2)).
	assert.InDelta(t, 0.11785, signedVolume(m), 1e-4)

	a := m.Vertices[0].Position
	b := m.Vertices[1].Position
	assert.InDelta(t, 1.0, a.Distance(b), 1e-5)
}

func TestIcoSphere(t *testing.T) {
	m := IcoSphere(1, 1)

	assert.Len(t, m.Triangles, 80)
	assert.Equal(t, 42, uniquePositions(m))
	// Inscribed polyhedron volume is a bit below 4/3*pi.
	v := signedVolume(m)
	assert.Greater(t, v, float32(3.5))
	assert.Less(t, v, float32(4.19))
}

func TestPrimitive(t *testing.T) {
	for _, name := range PrimitiveNames() {
		t.Run(name, func(t *testing.T) {
			m, err := Primitive(name, 1)
			require.NoError(t, err)
			assert.NotEmpty(t, m.Triangles)
		})
	}

	_, err := Primitive("teapot", 1)
	assert.Error(t, err)
}

func TestLoadOBJFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.obj")
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	m, err := Load(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "tri", m.Name)
	assert.Len(t, m.Vertices, 3)
	assert.Len(t, m.Triangles, 1)
}

func TestLoadPrimitiveByName(t *testing.T) {
	m, err := Load("Cube", 3)
	require.NoError(t, err)
	assert.InDelta(t, 27.0, signedVolume(m), 1e-4)
}
