package solver

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/pkg/math"
)

// ErrInvalidParams is wrapped by every Params validation error.
var ErrInvalidParams = errors.New("solver: invalid parameters")

// Mode selects how corrections are applied within one category pass.
type Mode uint8

const (
	// ModeGaussSeidel applies every correction to the candidate positions
	// immediately, so later constraints see earlier corrections.
	ModeGaussSeidel Mode = iota
	// ModeJacobi accumulates corrections and applies their per-vertex average
	// once at the end of the category pass.
	ModeJacobi
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeGaussSeidel:
		return "gauss-seidel"
	case ModeJacobi:
		return "jacobi"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// Categories switches constraint categories on and off.
type Categories struct {
	Distance  bool
	Volume    bool
	Collision bool
}

// AllCategories enables every category.
func AllCategories() Categories {
	return Categories{Distance: true, Volume: true, Collision: true}
}

// Enabled reports whether a category is switched on.
func (c Categories) Enabled(cat constraint.Category) bool {
	switch cat {
	case constraint.CategoryDistance:
		return c.Distance
	case constraint.CategoryVolume:
		return c.Volume
	case constraint.CategoryCollision:
		return c.Collision
	}
	return false
}

// Params are the solver tunables.
type Params struct {
	Substeps   int     // substeps per frame, >= 1
	Iterations int     // projection passes per substep, >= 1
	Alpha      float32 // compliance, 0 = rigid
	Beta       float32 // damping, 0 = undamped
	Mode       Mode
	Categories Categories

	// DebugAbort panics on numerical invalidity instead of aborting the substep.
	DebugAbort bool
}

// DefaultParams returns the parameters of the reference scene.
func DefaultParams() Params {
	return Params{
		Substeps:   5,
		Iterations: 1,
		Alpha:      0.0001,
		Beta:       5.0,
		Mode:       ModeGaussSeidel,
		Categories: AllCategories(),
	}
}

// Validate checks every field and reports all problems at once.
func (p Params) Validate() error {
	var errs error
	if p.Substeps < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%w: substeps must be >= 1, got %d", ErrInvalidParams, p.Substeps))
	}
	if p.Iterations < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%w: iterations must be >= 1, got %d", ErrInvalidParams, p.Iterations))
	}
	if !math.IsFinite(p.Alpha) || p.Alpha < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: alpha must be finite and >= 0, got %v", ErrInvalidParams, p.Alpha))
	}
	if !math.IsFinite(p.Beta) || p.Beta < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: beta must be finite and >= 0, got %v", ErrInvalidParams, p.Beta))
	}
	if p.Mode != ModeGaussSeidel && p.Mode != ModeJacobi {
		errs = multierr.Append(errs, fmt.Errorf("%w: unknown mode %s", ErrInvalidParams, p.Mode))
	}
	return errs
}
