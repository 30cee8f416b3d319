package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/internal/mesh"
	"github.com/Faultbox/softbody/internal/solver"
	"github.com/Faultbox/softbody/pkg/math"
)

const frameDt = float32(1.0 / 60.0)

// dropScene is a unit cube held 5 units above a static floor.
func dropScene(t *testing.T, opts Options) (*Scene, BodyID, BodyID) {
	t.Helper()
	s, err := New("drop", opts)
	require.NoError(t, err)

	floor, err := s.AddBody(BodySpec{Name: "floor", Mesh: mesh.Plane(20), Static: true})
	require.NoError(t, err)
	cube, err := s.AddBody(BodySpec{Name: "cube", Mesh: mesh.Cube(1), Transform: math.Translate(0, 5, 0)})
	require.NoError(t, err)

	assert.Equal(t, 8, s.BuildCollisions())
	return s, floor, cube
}

func TestCubeDropSettlesOnFloor(t *testing.T) {
	s, floorID, cubeID := dropScene(t, DefaultOptions())

	floor, err := s.Body(floorID)
	require.NoError(t, err)
	floorBefore := append([]math.Vec3(nil), floor.Positions...)

	var total solver.Report
	for i := 0; i < 600; i++ {
		r, err := s.Update(frameDt)
		require.NoError(t, err)
		total.Merge(r)
	}
	assert.Zero(t, total.Aborted)
	assert.Zero(t, total.NonFinite)
	assert.Empty(t, total.Disabled)
	assert.Equal(t, uint64(600), s.Frame())

	cube, err := s.Body(cubeID)
	require.NoError(t, err)
	for i, p := range cube.Positions {
		switch {
		case p.Y < 0.5:
			assert.InDelta(t, 0, p.Y, 0.05, "bottom vertex %d", i)
		default:
			assert.InDelta(t, 1, p.Y, 0.05, "top vertex %d", i)
		}
		assert.InDelta(t, 0, cube.Velocities[i].Length(), 0.05, "vertex %d still moving", i)
	}

	set, err := s.Constraints(cubeID)
	require.NoError(t, err)
	for _, c := range set.Distance {
		length := cube.Positions[c.Vertices[0]].Distance(cube.Positions[c.Vertices[1]])
		assert.InEpsilon(t, c.Rest, length, 0.05)
	}
	assert.InEpsilon(t, set.Body.RestVolume, cube.Volume(set), 0.05)

	assert.Equal(t, floorBefore, floor.Positions, "static floor moved")
}

func yRange(ps []math.Vec3) (lo, hi float32) {
	lo, hi = ps[0].Y, ps[0].Y
	for _, p := range ps[1:] {
		lo = min(lo, p.Y)
		hi = max(hi, p.Y)
	}
	return lo, hi
}

func TestCubeDropSettlesOnStaticBlock(t *testing.T) {
	s, err := New("block", DefaultOptions())
	require.NoError(t, err)

	// Closed 4x4x4 block with its top face at y=0.
	_, err = s.AddBody(BodySpec{Name: "block", Mesh: mesh.Cube(4), Static: true, Transform: math.Translate(0, -2, 0)})
	require.NoError(t, err)
	cubeID, err := s.AddBody(BodySpec{Name: "cube", Mesh: mesh.Cube(1), Transform: math.Translate(0, 5, 0)})
	require.NoError(t, err)

	// One hull per cube vertex.
	assert.Equal(t, 8, s.BuildCollisions())

	cube, err := s.Body(cubeID)
	require.NoError(t, err)

	_, err = s.Update(frameDt)
	require.NoError(t, err)
	lo, hi := yRange(cube.Positions)
	assert.Greater(t, lo, float32(4.4), "cube pulled toward the block")
	assert.InDelta(t, 1, hi-lo, 0.01)

	var total solver.Report
	for i := 1; i < 600; i++ {
		r, err := s.Update(frameDt)
		require.NoError(t, err)
		total.Merge(r)
	}
	assert.Zero(t, total.Aborted)
	assert.Empty(t, total.Disabled)

	lo, hi = yRange(cube.Positions)
	assert.InDelta(t, 0, lo, 0.05, "cube rests on the block top")
	assert.InDelta(t, 1, hi, 0.05)
	set, err := s.Constraints(cubeID)
	require.NoError(t, err)
	assert.InEpsilon(t, set.Body.RestVolume, cube.Volume(set), 0.05)
}

func TestUpdateSyncsDuplicates(t *testing.T) {
	s, _, cubeID := dropScene(t, DefaultOptions())
	for i := 0; i < 30; i++ {
		_, err := s.Update(frameDt)
		require.NoError(t, err)
	}

	cube, err := s.Body(cubeID)
	require.NoError(t, err)
	topo, err := s.Topology(cubeID)
	require.NoError(t, err)

	for u, group := range topo.DuplicateGroups {
		for _, c := range group {
			assert.Equal(t, cube.Positions[u], cube.RenderVertices()[c], "corner %d of vertex %d", c, u)
		}
	}
}

func TestBodiesFallAtSameRate(t *testing.T) {
	s, err := New("masses", DefaultOptions())
	require.NoError(t, err)

	light, err := s.AddBody(BodySpec{Name: "light", Mesh: mesh.Cube(1), Mass: 1, Transform: math.Translate(-2, 10, 0)})
	require.NoError(t, err)
	heavy, err := s.AddBody(BodySpec{Name: "heavy", Mesh: mesh.Cube(1), Mass: 100, Transform: math.Translate(2, 10, 0)})
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		_, err := s.Update(frameDt)
		require.NoError(t, err)
	}

	a, _ := s.Body(light)
	b, _ := s.Body(heavy)
	assert.InDelta(t, a.Centroid().Y, b.Centroid().Y, 1e-4)
	assert.Less(t, a.Centroid().Y, float32(10))
}

func TestArenaHandles(t *testing.T) {
	s, floorID, cubeID := dropScene(t, DefaultOptions())

	assert.Equal(t, 2, s.Len())
	floor, _ := s.Body(floorID)
	cube, _ := s.Body(cubeID)
	assert.Equal(t, 0, floor.TopologyID)
	assert.Equal(t, 1, cube.TopologyID)
	assert.Equal(t, 1, cube.ConstraintsID)

	id, ok := s.Lookup("cube")
	assert.True(t, ok)
	assert.Equal(t, cubeID, id)
	_, ok = s.Lookup("sphere")
	assert.False(t, ok)

	floorSet, err := s.Constraints(floorID)
	require.NoError(t, err)
	assert.Zero(t, floorSet.Count(), "static bodies carry no constraints")

	cubeSet, err := s.Constraints(cubeID)
	require.NoError(t, err)
	assert.Len(t, cubeSet.Distance, 18)
	assert.NotNil(t, cubeSet.Body)
	assert.Len(t, cubeSet.Collision, 8)

	_, err = s.Body(7)
	assert.True(t, errors.Is(err, ErrUnknownBody))
	_, err = s.Topology(-1)
	assert.True(t, errors.Is(err, ErrUnknownBody))
}

func TestAddBodyErrors(t *testing.T) {
	s, err := New("errors", DefaultOptions())
	require.NoError(t, err)

	_, err = s.AddBody(BodySpec{Name: "empty"})
	assert.True(t, errors.Is(err, ErrEmptyMesh))

	_, err = s.AddBody(BodySpec{Name: "a", Mesh: mesh.Cube(1)})
	require.NoError(t, err)
	_, err = s.AddBody(BodySpec{Name: "a", Mesh: mesh.Cube(1)})
	assert.True(t, errors.Is(err, ErrDuplicateBody))

	id, err := s.AddBody(BodySpec{Mesh: mesh.Tetrahedron(1)})
	require.NoError(t, err)
	b, _ := s.Body(id)
	assert.Equal(t, "body1", b.Name)
}

func TestOpenMeshHasNoVolume(t *testing.T) {
	s, err := New("cloth", DefaultOptions())
	require.NoError(t, err)

	id, err := s.AddBody(BodySpec{Name: "sheet", Mesh: mesh.Plane(2), Pinned: []int{0}})
	require.NoError(t, err)
	set, _ := s.Constraints(id)
	assert.Nil(t, set.Body)
	assert.Empty(t, set.Volume)
	assert.Len(t, set.Distance, 5)
}

func TestTriangleGranularityScene(t *testing.T) {
	opts := DefaultOptions()
	opts.Volume = constraint.Options{Granularity: constraint.GranularityTriangle}
	s, _, cubeID := dropScene(t, opts)

	set, _ := s.Constraints(cubeID)
	assert.Nil(t, set.Body)
	assert.Len(t, set.Volume, 12)

	for i := 0; i < 120; i++ {
		_, err := s.Update(frameDt)
		require.NoError(t, err)
	}
	cube, _ := s.Body(cubeID)
	for _, p := range cube.Positions {
		assert.True(t, p.IsFinite())
	}
}

func TestSetTunables(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	opts := DefaultOptions()
	opts.Logger = zap.New(core)
	s, _, cubeID := dropScene(t, opts)

	err := s.SetTunables(Tunables{Gravity: math.Vec3{}, Alpha: 0.001, Beta: 1})
	require.NoError(t, err)
	assert.Equal(t, Tunables{Gravity: math.Vec3{}, Alpha: 0.001, Beta: 1}, s.Tunables())
	assert.Equal(t, 1, logs.FilterMessage("tunables updated").Len())

	// Without gravity the cube hovers.
	cube, _ := s.Body(cubeID)
	before := cube.Centroid()
	for i := 0; i < 60; i++ {
		_, err := s.Update(frameDt)
		require.NoError(t, err)
	}
	assert.True(t, cube.Centroid().ApproxEqual(before, 1e-4))

	err = s.SetTunables(Tunables{Gravity: DefaultGravity, Alpha: -1, Beta: 1})
	assert.True(t, errors.Is(err, solver.ErrInvalidParams))
	assert.Equal(t, float32(0.001), s.Tunables().Alpha)
	assert.Equal(t, math.Vec3{}, s.Gravity)
}

func TestUpdateRejectsBadTimeStep(t *testing.T) {
	s, _, _ := dropScene(t, DefaultOptions())
	_, err := s.Update(0)
	assert.True(t, errors.Is(err, solver.ErrInvalidTimeStep))
	assert.Zero(t, s.Frame())
}

func TestSnapshot(t *testing.T) {
	s, _, cubeID := dropScene(t, DefaultOptions())
	lo, hi := s.Bounds()
	assert.InDelta(t, -10, lo.X, 1e-5)
	assert.InDelta(t, 5.5, hi.Y, 1e-5)

	s.Camera.FitToBounds(lo, hi)
	f := s.Snapshot(16.0 / 9.0)

	require.Len(t, f.Bodies, 2)
	assert.Equal(t, "floor", f.Bodies[0].Name)
	assert.True(t, f.Bodies[0].Static)

	cube, _ := s.Body(cubeID)
	fb := f.Bodies[cubeID]
	assert.Len(t, fb.Vertices, 24)
	assert.Len(t, fb.Normals, 24)
	assert.Len(t, fb.Triangles, 12)
	assert.Equal(t, cube.RenderVertices(), fb.Vertices)
	assert.Equal(t, f.ViewProjection.Mul(cube.Model), fb.MVP)

	center := f.ViewProjection.TransformPoint(s.Camera.Center)
	assert.InDelta(t, 0, center.X, 1e-4)
	assert.InDelta(t, 0, center.Y, 1e-4)
}

func TestStats(t *testing.T) {
	s, _, _ := dropScene(t, DefaultOptions())
	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "cube", stats[0].Name)
	assert.InDelta(t, 5, stats[0].Centroid.Y, 1e-5)
	assert.InDelta(t, 1, stats[0].Volume, 1e-5)
	assert.InDelta(t, 1, stats[0].RestVolume, 1e-5)
	assert.Zero(t, stats[0].Kinetic)
	assert.InDelta(t, 8*9.81*5, stats[0].Potential, 1e-2)
}

func TestCameraOrbitAndZoom(t *testing.T) {
	c := NewOrbitCamera()
	c.Orbit(0, 10)
	assert.Equal(t, c.MaxPitch, c.Pitch)

	c.Distance = 10
	c.Zoom(0.5)
	assert.InDelta(t, 5, c.Distance, 1e-6)
	c.Zoom(100)
	assert.Equal(t, c.MinDistance, c.Distance)

	c.Pitch, c.Yaw, c.Distance = 0, 0, 3
	assert.True(t, c.Position().ApproxEqual(math.V3(0, 0, 3), 1e-6))
}
