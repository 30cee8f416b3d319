package sim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/softbody/internal/scene"
	"github.com/Faultbox/softbody/pkg/formats"
)

// WriteOBJ writes the current render geometry of every body as one OBJ
// object per body.
func WriteOBJ(w io.Writer, s *scene.Scene) error {
	ow := formats.NewOBJWriter(w)
	for id := scene.BodyID(0); int(id) < s.Len(); id++ {
		b, err := s.Body(id)
		if err != nil {
			return err
		}
		topo, err := s.Topology(id)
		if err != nil {
			return err
		}
		ow.Object(b.Name, b.Corners, b.Normals, topo.CornerTriangles)
	}
	return ow.Flush()
}

// ExportOBJ writes the scene to path, creating parent directories as needed.
func ExportOBJ(path string, s *scene.Scene) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteOBJ(f, s); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
