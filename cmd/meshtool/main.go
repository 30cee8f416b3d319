// meshtool is a CLI utility for inspecting simulation meshes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/internal/mesh"
	"github.com/Faultbox/softbody/internal/topology"
	"github.com/Faultbox/softbody/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "primitives", "ls":
		cmdPrimitives()
	case "export", "x":
		cmdExport(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - softbody mesh utility

Usage:
  meshtool <command> [options]

Commands:
  info [-size N] [-granularity body|triangle] <mesh>  Show topology and constraint counts
  primitives                                         List built-in primitives
  export [-size N] <mesh> <out.obj>                  Write a mesh as OBJ

<mesh> is a primitive name or an OBJ file path.

Examples:
  meshtool info cube
  meshtool info -size 2 -granularity triangle icosphere
  meshtool export -size 3 icosphere sphere.obj`)
}

func loadMesh(source string, size float64) *mesh.Mesh {
	m, err := mesh.Load(source, float32(size))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return m
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	size := fs.Float64("size", 1, "Primitive edge length or diameter")
	granularity := fs.String("granularity", "body", "Volume constraint granularity")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool info <mesh>")
		os.Exit(1)
	}

	g, err := constraint.ParseGranularity(*granularity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m := loadMesh(fs.Arg(0), *size)
	topo, err := topology.Build(m.Positions(), m.Triangles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	closed := topo.IsClosed()
	set := constraint.NewSet(topo, topo.Positions, constraint.Options{
		Granularity: g,
		NoVolume:    !closed,
	})
	ext := m.Bounds.Size()

	fmt.Printf("Mesh:      %s\n", m.Name)
	fmt.Printf("Corners:   %d\n", topo.CornerCount())
	fmt.Printf("Vertices:  %d\n", topo.VertexCount())
	fmt.Printf("Triangles: %d\n", len(topo.Triangles))
	fmt.Printf("Edges:     %d\n", len(topo.Edges))
	fmt.Printf("Closed:    %t\n", closed)
	fmt.Printf("Extent:    %.4g x %.4g x %.4g\n", ext.X, ext.Y, ext.Z)
	if closed {
		fmt.Printf("Volume:    %.6g\n", topo.Volume(topo.Positions))
	}
	fmt.Println()
	fmt.Println("Constraints:")
	for _, cat := range constraint.Categories {
		fmt.Printf("  %-10s %d\n", cat, set.Len(cat))
	}

	if problems := set.Validate(topo.VertexCount()); len(problems) > 0 {
		fmt.Println()
		fmt.Println("Problems:")
		for _, cat := range constraint.Categories {
			if err, ok := problems[cat]; ok {
				fmt.Printf("  %s: %v\n", cat, err)
			}
		}
	}
}

func cmdPrimitives() {
	for _, name := range mesh.PrimitiveNames() {
		m, _ := mesh.Primitive(name, 1)
		fmt.Printf("%-12s %4d corners %4d triangles\n", name, len(m.Vertices), len(m.Triangles))
	}
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	size := fs.Float64("size", 1, "Primitive edge length or diameter")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool export <mesh> <out.obj>")
		os.Exit(1)
	}

	m := loadMesh(fs.Arg(0), *size)

	f, err := os.Create(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := formats.WriteOBJ(f, m.Name, m.Positions(), m.Triangles); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d triangles)\n", fs.Arg(1), len(m.Triangles))
}
