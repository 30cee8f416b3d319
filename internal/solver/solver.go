// Package solver implements the substepped XPBD integrator.
//
// Each frame is split into Substeps substeps of h = dt/Substeps. A substep
// predicts candidate positions from velocity and acceleration, projects the
// distance, volume and collision constraints in that order against the
// candidate array, then derives velocities from the position change.
package solver

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/softbody/internal/body"
	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/pkg/math"
)

// Solver errors.
var (
	ErrStaticBody      = errors.New("solver: static bodies are never integrated")
	ErrInvalidTimeStep = errors.New("solver: time step must be positive and finite")
)

// denominatorEpsilon is the smallest projection denominator that is solved.
const denominatorEpsilon = 1e-12

// Report summarizes one Step.
type Report struct {
	Substeps  int // completed substeps
	Projected int // constraint projections applied
	Inactive  int // collision constraints not penetrating
	Skipped   int // projections with a vanishing denominator
	NonFinite int // projections dropped for NaN or Inf
	Aborted   int // substeps reverted for non-finite positions

	// Disabled lists categories skipped for a configuration mismatch.
	Disabled []constraint.Category

	// MaxResidual is the largest |C| per category seen in the last substep,
	// before correction. Collisions only count penetration.
	MaxResidual [3]float32
}

// Merge adds the counters of o into r.
func (r *Report) Merge(o Report) {
	r.Substeps += o.Substeps
	r.Projected += o.Projected
	r.Inactive += o.Inactive
	r.Skipped += o.Skipped
	r.NonFinite += o.NonFinite
	r.Aborted += o.Aborted
	r.Disabled = append(r.Disabled, o.Disabled...)
	for i, v := range o.MaxResidual {
		r.MaxResidual[i] = max(r.MaxResidual[i], v)
	}
}

// Solver advances dynamic bodies. It is not safe for concurrent use; its
// scratch buffers are shared between the bodies it steps.
type Solver struct {
	params Params
	log    *zap.Logger

	x     []math.Vec3 // candidate positions
	grad  []math.Vec3 // body volume gradient
	delta []math.Vec3 // Jacobi accumulation
	count []int32

	reported map[string]struct{}
}

// New creates a solver. A nil logger disables logging.
func New(p Params, log *zap.Logger) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Solver{
		params:   p,
		log:      log,
		reported: make(map[string]struct{}),
	}, nil
}

// Params returns the current parameters.
func (s *Solver) Params() Params {
	return s.params
}

// SetParams replaces the parameters. Invalid parameters are rejected and the
// previous ones kept.
func (s *Solver) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

// frame is the per-Step projection context.
type frame struct {
	b          *body.Body
	set        *constraint.Set
	alphaTilde float32
	gamma      float32
	report     *Report
	track      bool
}

// Step advances a dynamic body by dt. The body's render corners are not
// updated; call body.Sync afterwards.
func (s *Solver) Step(b *body.Body, set *constraint.Set, dt float32) (Report, error) {
	var r Report
	if b.Static {
		return r, ErrStaticBody
	}
	if !math.IsFinite(dt) || dt <= 0 {
		return r, fmt.Errorf("%w: %v", ErrInvalidTimeStep, dt)
	}

	n := b.VertexCount()
	enabled := s.enabledCategories(b, set, &r)
	s.reserve(n)
	if len(b.Lambda) != set.Count() {
		b.Lambda = make([]float32, set.Count())
	}

	p := s.params
	h := dt / float32(p.Substeps)
	alphaTilde := p.Alpha / (h * h)
	betaTilde := p.Beta * h * h
	f := frame{
		b:          b,
		set:        set,
		alphaTilde: alphaTilde,
		gamma:      alphaTilde * betaTilde / h,
		report:     &r,
	}

	for sub := 0; sub < p.Substeps; sub++ {
		s.predict(b, h)
		clear(b.Lambda)

		for it := 0; it < p.Iterations; it++ {
			f.track = sub == p.Substeps-1 && it == 0
			for _, cat := range constraint.Categories {
				if enabled[cat] {
					s.projectCategory(&f, cat)
				}
			}
		}

		if !allFinite(s.x[:n]) {
			r.Aborted++
			s.abort(b, sub)
			continue
		}
		s.reconcile(b, h)
		r.Substeps++
	}

	if ce := s.log.Check(zapcore.DebugLevel, "body stepped"); ce != nil {
		ce.Write(
			zap.String("body", b.Name),
			zap.Int("substeps", r.Substeps),
			zap.Int("projected", r.Projected),
			zap.Int("skipped", r.Skipped),
			zap.Float32("residual_distance", r.MaxResidual[constraint.CategoryDistance]),
			zap.Float32("residual_volume", r.MaxResidual[constraint.CategoryVolume]),
			zap.Float32("residual_collision", r.MaxResidual[constraint.CategoryCollision]),
		)
	}
	return r, nil
}

// enabledCategories applies the category switches and the set's cached
// validation. Each mismatch is logged once per body and category.
func (s *Solver) enabledCategories(b *body.Body, set *constraint.Set, r *Report) [3]bool {
	var enabled [3]bool
	for _, cat := range constraint.Categories {
		enabled[cat] = s.params.Categories.Enabled(cat) && set.Len(cat) > 0
	}

	problems := set.Problems(b.VertexCount())
	for _, cat := range constraint.Categories {
		err, bad := problems[cat]
		if !bad || !enabled[cat] {
			continue
		}
		enabled[cat] = false
		r.Disabled = append(r.Disabled, cat)

		key := b.Name + "/" + cat.String()
		if _, ok := s.reported[key]; ok {
			continue
		}
		s.reported[key] = struct{}{}
		s.log.Warn("constraint category skipped",
			zap.String("body", b.Name),
			zap.Stringer("category", cat),
			zap.Error(err),
		)
	}
	return enabled
}

func (s *Solver) reserve(n int) {
	if cap(s.x) < n {
		s.x = make([]math.Vec3, n)
		s.grad = make([]math.Vec3, n)
		s.delta = make([]math.Vec3, n)
		s.count = make([]int32, n)
	}
	s.x = s.x[:n]
	s.grad = s.grad[:n]
	s.delta = s.delta[:n]
	s.count = s.count[:n]
}

// predict integrates velocity and writes candidate positions. Vertices with
// zero inverse mass stay where they are.
func (s *Solver) predict(b *body.Body, h float32) {
	for i, p := range b.Positions {
		if b.InvMass[i] == 0 {
			b.Velocities[i] = math.Vec3{}
			s.x[i] = p
			continue
		}
		b.Velocities[i] = b.Velocities[i].AddScaled(b.Accelerations[i], h)
		s.x[i] = p.AddScaled(b.Velocities[i], h)
	}
}

func (s *Solver) reconcile(b *body.Body, h float32) {
	inv := 1 / h
	for i, x := range s.x {
		b.Velocities[i] = x.Sub(b.Positions[i]).Scale(inv)
		b.Positions[i] = x
	}
}

// abort drops the substep's candidate positions and stops the body.
func (s *Solver) abort(b *body.Body, sub int) {
	if s.params.DebugAbort {
		panic(fmt.Sprintf("solver: non-finite candidate positions in body %q at substep %d", b.Name, sub))
	}
	s.log.Error("non-finite candidate positions, substep aborted",
		zap.String("body", b.Name),
		zap.Int("substep", sub),
	)
	clear(b.Velocities)
}

func allFinite(xs []math.Vec3) bool {
	for _, x := range xs {
		if !x.IsFinite() {
			return false
		}
	}
	return true
}
