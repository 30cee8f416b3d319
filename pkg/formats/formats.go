// Package formats reads and writes the mesh file formats used by the
// simulator. Wavefront OBJ is the only format: it is parsed into polygons,
// triangulated into render corners, and written back one object per body.
package formats
