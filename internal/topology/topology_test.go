package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/softbody/internal/mesh"
	"github.com/Faultbox/softbody/pkg/math"
)

func buildMesh(t *testing.T, m *mesh.Mesh) *Topology {
	t.Helper()
	topo, err := Build(m.Positions(), m.Triangles)
	require.NoError(t, err)
	return topo
}

func TestBuild_Cube(t *testing.T) {
	topo := buildMesh(t, mesh.Cube(1))

	assert.Equal(t, 8, topo.VertexCount())
	assert.Equal(t, 24, topo.CornerCount())
	// 12 cube edges plus one diagonal per face.
	assert.Len(t, topo.Edges, 18)
	assert.Len(t, topo.Triangles, 12)
	assert.True(t, topo.IsClosed())
	assert.InDelta(t, 1.0, topo.Volume(topo.Positions), 1e-5)
}

func TestBuild_EveryCornerInExactlyOneGroup(t *testing.T) {
	m := mesh.IcoSphere(1, 1)
	topo := buildMesh(t, m)

	seen := make(map[int]int)
	for u, group := range topo.DuplicateGroups {
		require.NotEmpty(t, group, "unique vertex %d has no corners", u)
		for _, c := range group {
			seen[c]++
			assert.Equal(t, u, topo.CornerToUnique[c])
			assert.Equal(t, topo.Positions[u], m.Vertices[c].Position)
		}
	}

	assert.Len(t, seen, len(m.Vertices))
	for c, n := range seen {
		assert.Equalf(t, 1, n, "corner %d appears in %d groups", c, n)
	}
	assert.LessOrEqual(t, topo.VertexCount(), topo.CornerCount())
}

func TestBuild_EdgesAreUniqueAndSorted(t *testing.T) {
	topo := buildMesh(t, mesh.Tetrahedron(1))

	assert.Len(t, topo.Edges, 6)
	seen := make(map[Edge]bool)
	for i, e := range topo.Edges {
		assert.LessOrEqual(t, e.V1, e.V2)
		assert.False(t, seen[e], "duplicate edge %v", e)
		seen[e] = true
		if i > 0 {
			prev := topo.Edges[i-1]
			assert.True(t, prev.V1 < e.V1 || (prev.V1 == e.V1 && prev.V2 < e.V2), "edges not sorted at %d", i)
		}
	}
}

func TestBuild_DegenerateTriangle(t *testing.T) {
	corners := []math.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
	}
	topo, err := Build(corners, [][3]uint32{{0, 1, 2}})
	require.NoError(t, err)

	assert.Equal(t, 2, topo.VertexCount())
	assert.Contains(t, topo.Edges, Edge{V1: 0, V2: 0})
	assert.Contains(t, topo.Edges, Edge{V1: 0, V2: 1})

	normals := topo.FaceNormals(topo.Positions)
	assert.Equal(t, math.Vec3{}, normals[0])
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, nil)
	assert.True(t, errors.Is(err, ErrNoCorners))

	_, err = Build([]math.Vec3{{}, {X: 1}}, [][3]uint32{{0, 1, 2}})
	assert.True(t, errors.Is(err, ErrCornerOutOfRange))
}

func TestMirror(t *testing.T) {
	m := mesh.Cube(1)
	topo := buildMesh(t, m)

	moved := make([]math.Vec3, topo.VertexCount())
	for i, p := range topo.Positions {
		moved[i] = p.Add(math.Vec3{X: float32(i), Y: 2, Z: -1})
	}
	corners := m.Positions()
	require.NoError(t, topo.Mirror(moved, corners))

	for u, group := range topo.DuplicateGroups {
		for _, c := range group {
			assert.Equal(t, moved[u], corners[c])
		}
	}

	err := topo.Mirror(moved[:3], corners)
	assert.True(t, errors.Is(err, ErrPositionsMismatch))
}

func TestFlatNormals(t *testing.T) {
	m := mesh.Cube(1)
	topo := buildMesh(t, m)

	normals := make([]math.Vec3, topo.CornerCount())
	topo.FlatNormals(topo.Positions, normals)
	for i, v := range m.Vertices {
		assert.True(t, normals[i].ApproxEqual(v.Normal, 1e-6), "corner %d: got %v, want %v", i, normals[i], v.Normal)
	}
}

func TestIsClosed_OpenPlane(t *testing.T) {
	topo := buildMesh(t, mesh.Plane(1))
	assert.False(t, topo.IsClosed())
	assert.Len(t, topo.Edges, 5)
}
