package sim

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/softbody/internal/config"
	"github.com/Faultbox/softbody/internal/scene"
	"github.com/Faultbox/softbody/pkg/formats"
	"github.com/Faultbox/softbody/pkg/math"
)

func defaultScene(t *testing.T) *scene.Scene {
	t.Helper()
	s, err := BuildScene(config.Default(), nil)
	require.NoError(t, err)
	return s
}

func cubeY(t *testing.T, s *scene.Scene) float32 {
	t.Helper()
	id, ok := s.Lookup("cube")
	require.True(t, ok)
	b, err := s.Body(id)
	require.NoError(t, err)
	return b.Centroid().Y
}

func TestBuildScene(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, err := BuildScene(config.Default(), zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, "drop", s.Name)
	assert.Equal(t, 2, s.Len())
	assert.InDelta(t, 5, cubeY(t, s), 1e-5)

	floorID, ok := s.Lookup("floor")
	require.True(t, ok)
	floor, err := s.Body(floorID)
	require.NoError(t, err)
	assert.True(t, floor.Static)

	entries := logs.FilterMessage("scene built").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(8), entries[0].ContextMap()["collision_constraints"])
}

func TestBuildSceneErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Scene.Bodies[1].Mesh = filepath.Join(t.TempDir(), "missing.obj")
	_, err := BuildScene(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene.bodies[1]")

	cfg = config.Default()
	cfg.Scene.Bodies[1].Name = "floor"
	_, err = BuildScene(cfg, nil)
	assert.ErrorIs(t, err, scene.ErrDuplicateBody)

	cfg = config.Default()
	cfg.Simulation.VolumeGranularity = "vertex"
	_, err = BuildScene(cfg, nil)
	assert.Error(t, err)
}

func TestRunFixedDuration(t *testing.T) {
	s := defaultScene(t)
	core, logs := observer.New(zapcore.InfoLevel)

	r := NewRunner(s, config.RunConfig{
		FPS:        60,
		Duration:   config.Duration(time.Second),
		StatsEvery: 30,
	}, zap.New(core))

	st, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 60, st.Frames)
	assert.Equal(t, uint64(60), s.Frame())
	assert.Equal(t, time.Second, st.Simulated)
	assert.Equal(t, 60*5, st.Report.Substeps)
	assert.Zero(t, st.Report.Aborted)
	assert.Less(t, cubeY(t, s), float32(5))

	// the cube at frames 30 and 60
	stats := logs.FilterMessage("frame stats").All()
	require.Len(t, stats, 2)
	assert.Equal(t, int64(30), stats[0].ContextMap()["frame"])
	assert.Len(t, logs.FilterMessage("simulation finished").All(), 1)
}

func TestRunUntilCancelled(t *testing.T) {
	s := defaultScene(t)
	r := NewRunner(s, config.RunConfig{FPS: 60}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	st, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Positive(t, st.Frames)
	assert.Equal(t, uint64(st.Frames), s.Frame())
}

func TestRunRejectsBadFPS(t *testing.T) {
	r := NewRunner(defaultScene(t), config.RunConfig{FPS: 0}, nil)
	_, err := r.Run(context.Background())
	assert.Error(t, err)
}

func TestRunRealtimeCapsFrames(t *testing.T) {
	s := defaultScene(t)
	r := NewRunner(s, config.RunConfig{
		FPS:      50,
		Duration: config.Duration(100 * time.Millisecond),
		Realtime: true,
	}, nil)

	c := newFakeClock()
	r.timer = newTimer(c.now, c.sleep)

	st, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, st.Frames)
	require.Len(t, c.slept, 5)
	for _, d := range c.slept {
		assert.Equal(t, 20*time.Millisecond, d)
	}
}

func TestPushTunables(t *testing.T) {
	s := defaultScene(t)
	r := NewRunner(s, config.RunConfig{FPS: 60, Duration: config.Duration(time.Second)}, nil)

	// Only the latest update is applied.
	r.PushTunables(scene.Tunables{Gravity: math.V3(0, -20, 0), Alpha: 0.01, Beta: 1})
	r.PushTunables(scene.Tunables{Gravity: math.Vec3{}, Alpha: 0.001, Beta: 2})

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	got := s.Tunables()
	assert.Equal(t, math.Vec3{}, got.Gravity)
	assert.Equal(t, float32(0.001), got.Alpha)
	assert.Equal(t, float32(2), got.Beta)

	// Weightless from the first frame, the cube never moves.
	assert.InDelta(t, 5, cubeY(t, s), 1e-4)
}

func TestRejectedTunablesAreLogged(t *testing.T) {
	s := defaultScene(t)
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRunner(s, config.RunConfig{FPS: 60, Duration: config.Duration(time.Second / 60)}, zap.New(core))

	r.PushTunables(scene.Tunables{Gravity: scene.DefaultGravity, Alpha: -1, Beta: 5})
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, logs.FilterMessage("tunables rejected").All(), 1)
	assert.Equal(t, scene.DefaultGravity, s.Tunables().Gravity)
}

func TestWriteOBJ(t *testing.T) {
	s := defaultScene(t)

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, s))

	out := buf.String()
	assert.Contains(t, out, "o floor\n")
	assert.Contains(t, out, "o cube\n")

	obj, err := formats.ParseOBJ(buf.Bytes())
	require.NoError(t, err)

	wantCorners, wantFaces := 0, 0
	for id := scene.BodyID(0); int(id) < s.Len(); id++ {
		topo, err := s.Topology(id)
		require.NoError(t, err)
		wantCorners += topo.CornerCount()
		wantFaces += len(topo.CornerTriangles)
	}
	assert.Len(t, obj.Positions, wantCorners)
	assert.Len(t, obj.Normals, wantCorners)
	assert.Equal(t, wantFaces, strings.Count(out, "\nf "))
}

func TestExportOBJ(t *testing.T) {
	s := defaultScene(t)
	path := filepath.Join(t.TempDir(), "out", "frame.obj")

	require.NoError(t, ExportOBJ(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "o cube\n")
}
