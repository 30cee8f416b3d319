// Package topology derives the simulation topology of a triangulated mesh:
// deduplicated point masses, the render corners that mirror them, unique edges
// and triangles.
package topology

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/softbody/pkg/math"
)

// Topology errors.
var (
	ErrNoCorners         = errors.New("topology: mesh has no corners")
	ErrCornerOutOfRange  = errors.New("topology: triangle references missing corner")
	ErrPositionsMismatch = errors.New("topology: position count does not match unique vertex count")
)

// Edge is an unordered pair of unique vertex indices with V1 <= V2.
type Edge struct {
	V1, V2 int
}

// NewEdge returns the canonical (ordered) form of the pair.
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{V1: a, V2: b}
}

// IsDegenerate reports whether both ends are the same vertex.
func (e Edge) IsDegenerate() bool {
	return e.V1 == e.V2
}

// Triangle holds three unique vertex indices in the mesh winding order.
type Triangle [3]int

// Topology is the immutable result of Build.
type Topology struct {
	// Positions are the deduplicated rest positions, in first-seen order.
	Positions []math.Vec3
	// DuplicateGroups lists, per unique vertex, every render corner that mirrors it.
	DuplicateGroups [][]int
	// CornerToUnique maps each render corner to its unique vertex.
	CornerToUnique []int
	// Edges are the unique edges of all triangles, sorted.
	Edges []Edge
	// Triangles are the mesh triangles over unique vertices.
	Triangles []Triangle
	// CornerTriangles are the mesh triangles over render corners, for draw calls.
	CornerTriangles [][3]uint32
}

// Build deduplicates corner positions and collects edges and triangles.
// Corners are matched by exact coordinate equality.
func Build(corners []math.Vec3, triangles [][3]uint32) (*Topology, error) {
	if len(corners) == 0 {
		return nil, ErrNoCorners
	}

	t := &Topology{
		CornerToUnique:  make([]int, len(corners)),
		CornerTriangles: triangles,
	}

	lookup := make(map[math.Vec3]int, len(corners))
	for i, p := range corners {
		idx, ok := lookup[p]
		if !ok {
			idx = len(t.Positions)
			lookup[p] = idx
			t.Positions = append(t.Positions, p)
			t.DuplicateGroups = append(t.DuplicateGroups, nil)
		}
		t.DuplicateGroups[idx] = append(t.DuplicateGroups[idx], i)
		t.CornerToUnique[i] = idx
	}

	edges := make(map[Edge]struct{}, len(triangles)*3/2)
	t.Triangles = make([]Triangle, 0, len(triangles))
	for ti, tri := range triangles {
		var u Triangle
		for j, c := range tri {
			if int(c) >= len(corners) {
				return nil, fmt.Errorf("%w: triangle %d corner %d", ErrCornerOutOfRange, ti, c)
			}
			u[j] = t.CornerToUnique[c]
		}
		t.Triangles = append(t.Triangles, u)

		edges[NewEdge(u[0], u[1])] = struct{}{}
		edges[NewEdge(u[1], u[2])] = struct{}{}
		edges[NewEdge(u[2], u[0])] = struct{}{}
	}

	t.Edges = make([]Edge, 0, len(edges))
	for e := range edges {
		t.Edges = append(t.Edges, e)
	}
	sort.Slice(t.Edges, func(i, j int) bool {
		if t.Edges[i].V1 != t.Edges[j].V1 {
			return t.Edges[i].V1 < t.Edges[j].V1
		}
		return t.Edges[i].V2 < t.Edges[j].V2
	})

	return t, nil
}

// VertexCount returns the number of unique vertices.
func (t *Topology) VertexCount() int {
	return len(t.Positions)
}

// CornerCount returns the number of render corners.
func (t *Topology) CornerCount() int {
	return len(t.CornerToUnique)
}

// Mirror copies every unique position into all corners of its duplicate group.
func (t *Topology) Mirror(unique, corners []math.Vec3) error {
	if len(unique) != len(t.DuplicateGroups) {
		return fmt.Errorf("%w: got %d, want %d", ErrPositionsMismatch, len(unique), len(t.DuplicateGroups))
	}
	for i, group := range t.DuplicateGroups {
		p := unique[i]
		for _, c := range group {
			corners[c] = p
		}
	}
	return nil
}

// FaceNormals returns one unit normal per triangle for the given unique positions.
// Degenerate triangles get a zero normal.
func (t *Topology) FaceNormals(unique []math.Vec3) []math.Vec3 {
	normals := make([]math.Vec3, len(t.Triangles))
	for i, tri := range t.Triangles {
		normals[i] = math.TriangleNormal(unique[tri[0]], unique[tri[1]], unique[tri[2]])
	}
	return normals
}

// FlatNormals writes the face normal of every triangle into its three render corners.
func (t *Topology) FlatNormals(unique, cornerNormals []math.Vec3) {
	for i, tri := range t.CornerTriangles {
		u := t.Triangles[i]
		n := math.TriangleNormal(unique[u[0]], unique[u[1]], unique[u[2]])
		cornerNormals[tri[0]] = n
		cornerNormals[tri[1]] = n
		cornerNormals[tri[2]] = n
	}
}

// Volume returns the signed volume enclosed by the triangles, by the divergence theorem.
// It is only meaningful for closed, consistently wound meshes.
func (t *Topology) Volume(unique []math.Vec3) float32 {
	var v float32
	for _, tri := range t.Triangles {
		v += math.SignedTetraVolume(unique[tri[0]], unique[tri[1]], unique[tri[2]])
	}
	return v
}

// IsClosed reports whether every edge is shared by exactly two triangles.
func (t *Topology) IsClosed() bool {
	counts := make(map[Edge]int, len(t.Edges))
	for _, tri := range t.Triangles {
		counts[NewEdge(tri[0], tri[1])]++
		counts[NewEdge(tri[1], tri[2])]++
		counts[NewEdge(tri[2], tri[0])]++
	}
	for _, n := range counts {
		if n != 2 {
			return false
		}
	}
	return len(counts) > 0
}
