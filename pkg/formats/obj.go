package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/softbody/pkg/math"
)

// OBJ format errors.
var (
	ErrInvalidOBJVertex = errors.New("invalid OBJ vertex")
	ErrInvalidOBJFace   = errors.New("invalid OBJ face")
	ErrOBJIndexRange    = errors.New("OBJ index out of range")
	ErrEmptyOBJ         = errors.New("OBJ contains no faces")
)

// OBJCorner references the attributes of one polygon corner.
// Indices are 0-based; -1 marks an absent attribute.
type OBJCorner struct {
	Position int
	TexCoord int
	Normal   int
}

// OBJFace is one polygon as listed in the file.
type OBJFace struct {
	Corners []OBJCorner
}

// OBJ represents a parsed Wavefront OBJ file. Only geometry statements
// (v, vt, vn, f, o) are read; materials, groups and smoothing are ignored.
type OBJ struct {
	Name      string
	Positions []math.Vec3
	TexCoords [][2]float32
	Normals   []math.Vec3
	Faces     []OBJFace
}

// TriangleMesh is a triangulated OBJ with one vertex per distinct corner
// (position, texcoord, normal). Corners that share a position but differ in
// another attribute stay separate vertices, as a renderer needs them.
type TriangleMesh struct {
	Positions []math.Vec3
	TexCoords [][2]float32
	Normals   []math.Vec3
	Triangles [][3]uint32
}

// ParseOBJ parses an OBJ file from raw bytes.
func ParseOBJ(data []byte) (*OBJ, error) {
	return ReadOBJ(bytes.NewReader(data))
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*OBJ, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obj, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obj, nil
}

// ReadOBJ parses OBJ statements from r.
func ReadOBJ(r io.Reader) (*OBJ, error) {
	obj := &OBJ{}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		ident, args := fields[0], fields[1:]

		switch ident {
		case "v", "vn":
			v, err := parseVec3(args)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if ident == "v" {
				obj.Positions = append(obj.Positions, v)
			} else {
				obj.Normals = append(obj.Normals, v)
			}
		case "vt":
			if len(args) < 1 {
				return nil, fmt.Errorf("line %d: %w: texcoord needs at least 1 value", lineNo, ErrInvalidOBJVertex)
			}
			var uv [2]float32
			for i := 0; i < len(args) && i < 2; i++ {
				f, err := strconv.ParseFloat(args[i], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w: %v", lineNo, ErrInvalidOBJVertex, err)
				}
				uv[i] = float32(f)
			}
			obj.TexCoords = append(obj.TexCoords, uv)
		case "f":
			face, err := obj.parseFace(args)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			obj.Faces = append(obj.Faces, face)
		case "o":
			if obj.Name == "" && len(args) > 0 {
				obj.Name = strings.Join(args, " ")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(obj.Faces) == 0 {
		return nil, ErrEmptyOBJ
	}
	return obj, nil
}

func parseVec3(args []string) (math.Vec3, error) {
	if len(args) < 3 {
		return math.Vec3{}, fmt.Errorf("%w: need 3 components, got %d", ErrInvalidOBJVertex, len(args))
	}
	var c [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("%w: %v", ErrInvalidOBJVertex, err)
		}
		c[i] = float32(f)
	}
	return math.FromArray(c), nil
}

// parseFace parses "f" arguments of the forms p, p/t, p//n and p/t/n.
// Negative indices count back from the most recent element.
func (o *OBJ) parseFace(args []string) (OBJFace, error) {
	if len(args) < 3 {
		return OBJFace{}, fmt.Errorf("%w: need at least 3 corners, got %d", ErrInvalidOBJFace, len(args))
	}

	face := OBJFace{Corners: make([]OBJCorner, 0, len(args))}
	for _, arg := range args {
		parts := strings.Split(arg, "/")
		if len(parts) > 3 || parts[0] == "" {
			return OBJFace{}, fmt.Errorf("%w: malformed corner %q", ErrInvalidOBJFace, arg)
		}

		corner := OBJCorner{Position: -1, TexCoord: -1, Normal: -1}
		var err error
		if corner.Position, err = resolveIndex(parts[0], len(o.Positions)); err != nil {
			return OBJFace{}, err
		}
		if len(parts) > 1 && parts[1] != "" {
			if corner.TexCoord, err = resolveIndex(parts[1], len(o.TexCoords)); err != nil {
				return OBJFace{}, err
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			if corner.Normal, err = resolveIndex(parts[2], len(o.Normals)); err != nil {
				return OBJFace{}, err
			}
		}
		face.Corners = append(face.Corners, corner)
	}
	return face, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOBJFace, err)
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return 0, fmt.Errorf("%w: %d (have %d)", ErrOBJIndexRange, i, count)
	}
}

// Triangulate fans every polygon into triangles and merges identical corners.
// Missing normals are left zero; the simulator recomputes flat normals anyway.
func (o *OBJ) Triangulate() *TriangleMesh {
	mesh := &TriangleMesh{}
	seen := make(map[OBJCorner]uint32)

	vertex := func(c OBJCorner) uint32 {
		if idx, ok := seen[c]; ok {
			return idx
		}
		idx := uint32(len(mesh.Positions))
		seen[c] = idx

		mesh.Positions = append(mesh.Positions, o.Positions[c.Position])
		var uv [2]float32
		if c.TexCoord >= 0 {
			uv = o.TexCoords[c.TexCoord]
		}
		mesh.TexCoords = append(mesh.TexCoords, uv)
		var n math.Vec3
		if c.Normal >= 0 {
			n = o.Normals[c.Normal]
		}
		mesh.Normals = append(mesh.Normals, n)
		return idx
	}

	for _, face := range o.Faces {
		first := vertex(face.Corners[0])
		for i := 1; i+1 < len(face.Corners); i++ {
			mesh.Triangles = append(mesh.Triangles, [3]uint32{
				first,
				vertex(face.Corners[i]),
				vertex(face.Corners[i+1]),
			})
		}
	}
	return mesh
}

// WriteOBJ writes a single object with positions and triangles.
func WriteOBJ(w io.Writer, name string, positions []math.Vec3, triangles [][3]uint32) error {
	ow := NewOBJWriter(w)
	ow.Object(name, positions, nil, triangles)
	return ow.Flush()
}

// OBJWriter writes several objects into one OBJ stream, offsetting each
// object's face indices past the positions and normals already written.
type OBJWriter struct {
	bw      *bufio.Writer
	offset  int // positions written so far
	nOffset int // normals written so far
}

// NewOBJWriter wraps w.
func NewOBJWriter(w io.Writer) *OBJWriter {
	return &OBJWriter{bw: bufio.NewWriter(w)}
}

// Object appends one object. normals may be nil; otherwise it must have one
// entry per position.
func (ow *OBJWriter) Object(name string, positions, normals []math.Vec3, triangles [][3]uint32) {
	if name != "" {
		fmt.Fprintf(ow.bw, "o %s\n", name)
	}
	for _, p := range positions {
		fmt.Fprintf(ow.bw, "v %g %g %g\n", p.X, p.Y, p.Z)
	}
	for _, n := range normals {
		fmt.Fprintf(ow.bw, "vn %g %g %g\n", n.X, n.Y, n.Z)
	}
	for _, t := range triangles {
		a, b, c := int(t[0])+ow.offset+1, int(t[1])+ow.offset+1, int(t[2])+ow.offset+1
		if normals != nil {
			na, nb, nc := int(t[0])+ow.nOffset+1, int(t[1])+ow.nOffset+1, int(t[2])+ow.nOffset+1
			fmt.Fprintf(ow.bw, "f %d//%d %d//%d %d//%d\n", a, na, b, nb, c, nc)
		} else {
			fmt.Fprintf(ow.bw, "f %d %d %d\n", a, b, c)
		}
	}
	ow.offset += len(positions)
	ow.nOffset += len(normals)
}

// Flush writes any buffered data.
func (ow *OBJWriter) Flush() error {
	return ow.bw.Flush()
}
