package scene

import "github.com/Faultbox/softbody/pkg/math"

// BodyFrame is the render-facing state of one body. The slices alias scene
// storage and must not be modified.
type BodyFrame struct {
	Name      string
	Static    bool
	Vertices  []math.Vec3 // per render corner
	Normals   []math.Vec3 // per render corner
	Triangles [][3]uint32 // over render corners
	Model     math.Mat4
	MVP       math.Mat4
}

// Frame is everything a renderer needs to draw the scene once.
type Frame struct {
	Number         uint64
	ViewProjection math.Mat4
	Bodies         []BodyFrame
}

// Snapshot captures the render-facing output for a viewport aspect ratio.
func (s *Scene) Snapshot(aspect float32) Frame {
	vp := s.Camera.ViewProjection(aspect)
	f := Frame{
		Number:         s.frame,
		ViewProjection: vp,
		Bodies:         make([]BodyFrame, 0, len(s.bodies)),
	}
	for _, b := range s.bodies {
		f.Bodies = append(f.Bodies, BodyFrame{
			Name:      b.Name,
			Static:    b.Static,
			Vertices:  b.RenderVertices(),
			Normals:   b.Normals,
			Triangles: s.topologies[b.TopologyID].CornerTriangles,
			Model:     b.Model,
			MVP:       vp.Mul(b.Model),
		})
	}
	return f
}

// BodyStats are per-body diagnostics.
type BodyStats struct {
	Name       string
	Centroid   math.Vec3
	Volume     float32
	RestVolume float32
	Kinetic    float32
	Potential  float32
}

// Stats returns diagnostics for every dynamic body.
func (s *Scene) Stats() []BodyStats {
	var out []BodyStats
	for _, b := range s.bodies {
		if b.Static {
			continue
		}
		set := s.constraints[b.ConstraintsID]
		st := BodyStats{
			Name:     b.Name,
			Centroid: b.Centroid(),
			Volume:   b.Volume(set),
		}
		if set.Body != nil {
			st.RestVolume = set.Body.RestVolume
		}
		st.Kinetic, st.Potential = b.Energy(s.Gravity)
		out = append(out, st)
	}
	return out
}
