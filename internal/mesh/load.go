package mesh

import (
	"path/filepath"
	"strings"

	"github.com/Faultbox/softbody/pkg/formats"
)

// FromOBJ converts a triangulated OBJ into a Mesh.
func FromOBJ(name string, tm *formats.TriangleMesh) *Mesh {
	m := &Mesh{
		Name:      name,
		Vertices:  make([]Vertex, len(tm.Positions)),
		Triangles: tm.Triangles,
	}
	for i := range tm.Positions {
		m.Vertices[i] = Vertex{
			Position: tm.Positions[i],
			Normal:   tm.Normals[i],
			TexCoord: tm.TexCoords[i],
		}
	}
	m.computeBounds()
	return m
}

// Load resolves source as a primitive name or an OBJ file path.
// size only applies to primitives.
func Load(source string, size float32) (*Mesh, error) {
	if IsPrimitive(source) {
		return Primitive(source, size)
	}

	obj, err := formats.ParseOBJFile(source)
	if err != nil {
		return nil, err
	}
	name := obj.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	return FromOBJ(name, obj.Triangulate()), nil
}
