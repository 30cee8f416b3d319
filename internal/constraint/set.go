package constraint

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/softbody/pkg/math"
)

// ErrConfigMismatch marks a constraint definition that cannot be evaluated
// against the body it is attached to.
var ErrConfigMismatch = errors.New("constraint configuration mismatch")

// Category groups constraints that are projected together.
type Category uint8

// Categories in solve order.
const (
	CategoryDistance Category = iota
	CategoryVolume
	CategoryCollision
	categoryCount
)

// Categories lists every category in the fixed solve order.
var Categories = [categoryCount]Category{CategoryDistance, CategoryVolume, CategoryCollision}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryDistance:
		return "distance"
	case CategoryVolume:
		return "volume"
	case CategoryCollision:
		return "collision"
	default:
		return fmt.Sprintf("Category(%d)", c)
	}
}

// Granularity selects how volume is constrained.
type Granularity uint8

const (
	// GranularityBody constrains the total enclosed volume with one scalar.
	GranularityBody Granularity = iota
	// GranularityTriangle constrains each triangle's volume contribution separately.
	GranularityTriangle
)

// String returns the granularity name used in configuration files.
func (g Granularity) String() string {
	if g == GranularityTriangle {
		return "triangle"
	}
	return "body"
}

// ParseGranularity converts a configuration value into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "", "body":
		return GranularityBody, nil
	case "triangle":
		return GranularityTriangle, nil
	default:
		return 0, fmt.Errorf("unknown volume granularity %q", s)
	}
}

// Set is every constraint of one body.
type Set struct {
	Distance []Constraint
	// Volume holds per-triangle volume constraints (GranularityTriangle).
	Volume []Constraint
	// Body is the whole-body volume constraint (GranularityBody), nil if unused.
	Body      *VolumeSet
	Collision []Constraint
	// Pressure scales the rest volume; 1 keeps the initial volume.
	Pressure    float32
	Granularity Granularity

	// Problems cache, keyed by vertex count.
	checked  bool
	checkedN int
	problems map[Category]error
}

// Len returns the number of scalar constraints in a category.
func (s *Set) Len(c Category) int {
	switch c {
	case CategoryDistance:
		return len(s.Distance)
	case CategoryVolume:
		n := len(s.Volume)
		if s.Body != nil {
			n++
		}
		return n
	case CategoryCollision:
		return len(s.Collision)
	}
	return 0
}

// Count returns the total number of scalar constraints, one Lagrange multiplier each.
func (s *Set) Count() int {
	n := 0
	for _, c := range Categories {
		n += s.Len(c)
	}
	return n
}

// Offset returns the index of the first multiplier of a category.
func (s *Set) Offset(c Category) int {
	n := 0
	for _, other := range Categories {
		if other == c {
			return n
		}
		n += s.Len(other)
	}
	return n
}

// maxReported caps the number of individual problems kept per category.
const maxReported = 5

// Validate checks every category against a body with vertexCount vertices.
// The returned map only has entries for categories that must be skipped.
func (s *Set) Validate(vertexCount int) map[Category]error {
	problems := make(map[Category]error)

	check := func(c Category, list []Constraint, want Kind) {
		var errs error
		bad := 0
		for i := range list {
			if err := list[i].validate(want, vertexCount); err != nil {
				bad++
				if bad <= maxReported {
					errs = multierr.Append(errs, fmt.Errorf("%s[%d]: %w", c, i, err))
				}
			}
		}
		if bad > maxReported {
			errs = multierr.Append(errs, fmt.Errorf("%s: %d more invalid constraints", c, bad-maxReported))
		}
		if errs != nil {
			problems[c] = errs
		}
	}

	check(CategoryDistance, s.Distance, KindDistance)
	check(CategoryVolume, s.Volume, KindVolume)
	check(CategoryCollision, s.Collision, KindEnvCollision)

	if s.Body != nil || len(s.Volume) > 0 {
		var errs error
		if !math.IsFinite(s.Pressure) || s.Pressure <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%w: pressure factor %v", ErrConfigMismatch, s.Pressure))
		}
		if s.Body != nil {
			errs = multierr.Append(errs, s.Body.validate(vertexCount))
		}
		if errs != nil {
			problems[CategoryVolume] = multierr.Append(problems[CategoryVolume], errs)
		}
	}

	return problems
}

// Problems returns the Validate result for vertexCount, computing it once.
// A set is read-only once built; call Invalidate after changing it.
func (s *Set) Problems(vertexCount int) map[Category]error {
	if !s.checked || s.checkedN != vertexCount {
		s.problems = s.Validate(vertexCount)
		s.checked = true
		s.checkedN = vertexCount
	}
	return s.problems
}

// Invalidate drops the cached Problems result.
func (s *Set) Invalidate() {
	s.checked = false
	s.problems = nil
}

func (c *Constraint) validate(want Kind, vertexCount int) error {
	if c.Kind != want {
		return fmt.Errorf("%w: kind %s in %s category", ErrConfigMismatch, c.Kind, want)
	}
	for _, v := range c.Vertices[:c.Kind.Arity()] {
		if v < 0 || v >= vertexCount {
			return fmt.Errorf("%w: vertex %d out of range [0,%d)", ErrConfigMismatch, v, vertexCount)
		}
	}
	if !math.IsFinite(c.Rest) {
		return fmt.Errorf("%w: rest value %v", ErrConfigMismatch, c.Rest)
	}
	switch c.Kind {
	case KindDistance:
		if c.Rest < 0 {
			return fmt.Errorf("%w: negative rest length %v", ErrConfigMismatch, c.Rest)
		}
	case KindEnvCollision:
		if c.Hull == nil {
			return Candidate{Normal: c.Normal, Point: c.Anchor}.validate()
		}
		if len(c.Hull.Planes) == 0 {
			return fmt.Errorf("%w: collision hull has no planes", ErrConfigMismatch)
		}
		for _, pl := range c.Hull.Planes {
			if err := pl.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c Candidate) validate() error {
	l := c.Normal.Length()
	if l < 0.999 || l > 1.001 {
		return fmt.Errorf("%w: candidate normal %v is not unit length", ErrConfigMismatch, c.Normal)
	}
	if !c.Point.IsFinite() {
		return fmt.Errorf("%w: candidate anchor %v", ErrConfigMismatch, c.Point)
	}
	return nil
}

func (v *VolumeSet) validate(vertexCount int) error {
	if len(v.Triangles) == 0 {
		return fmt.Errorf("%w: volume constraint has no triangles", ErrConfigMismatch)
	}
	if !math.IsFinite(v.RestVolume) || v.RestVolume == 0 {
		return fmt.Errorf("%w: rest volume %v", ErrConfigMismatch, v.RestVolume)
	}
	for i, t := range v.Triangles {
		for _, idx := range t {
			if idx < 0 || idx >= vertexCount {
				return fmt.Errorf("%w: volume triangle %d vertex %d out of range [0,%d)", ErrConfigMismatch, i, idx, vertexCount)
			}
		}
	}
	return nil
}
