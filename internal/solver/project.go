package solver

import (
	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/pkg/math"
)

func (s *Solver) projectCategory(f *frame, cat constraint.Category) {
	lambda := f.b.Lambda[f.set.Offset(cat):]

	switch cat {
	case constraint.CategoryDistance:
		s.projectList(f, cat, f.set.Distance, lambda)
	case constraint.CategoryVolume:
		if f.set.Body != nil {
			s.projectVolume(f, f.set.Body, &lambda[0])
			lambda = lambda[1:]
		}
		s.projectList(f, cat, f.set.Volume, lambda)
	case constraint.CategoryCollision:
		s.projectList(f, cat, f.set.Collision, lambda)
	}

	if s.params.Mode == ModeJacobi {
		s.applyAccumulated()
	}
}

func (s *Solver) projectList(f *frame, cat constraint.Category, list []constraint.Constraint, lambda []float32) {
	inv := f.b.InvMass
	pos := f.b.Positions

	for i := range list {
		c, g := list[i].Evaluate(s.x, f.set.Pressure)

		if list[i].Kind == constraint.KindEnvCollision && c >= 0 {
			f.report.Inactive++
			continue
		}
		if f.track {
			f.report.MaxResidual[cat] = max(f.report.MaxResidual[cat], abs(c))
		}

		var w, posDiff float32
		for k := 0; k < g.N; k++ {
			v := g.Vertices[k]
			w += inv[v] * g.Grad[k].LengthSq()
			posDiff += g.Grad[k].Dot(s.x[v].Sub(pos[v]))
		}

		dl, ok := s.deltaLambda(f, c, w, posDiff, lambda[i])
		if !ok {
			continue
		}
		lambda[i] += dl

		for k := 0; k < g.N; k++ {
			v := g.Vertices[k]
			if inv[v] != 0 {
				s.move(v, g.Grad[k].Scale(dl*inv[v]))
			}
		}
	}
}

// projectVolume projects the single whole-body volume constraint.
func (s *Solver) projectVolume(f *frame, vs *constraint.VolumeSet, lambda *float32) {
	inv := f.b.InvMass
	pos := f.b.Positions

	c := vs.Evaluate(s.x, f.set.Pressure, s.grad)
	if f.track {
		cat := constraint.CategoryVolume
		f.report.MaxResidual[cat] = max(f.report.MaxResidual[cat], abs(c))
	}

	var w, posDiff float32
	for _, v := range vs.Vertices {
		w += inv[v] * s.grad[v].LengthSq()
		posDiff += s.grad[v].Dot(s.x[v].Sub(pos[v]))
	}

	dl, ok := s.deltaLambda(f, c, w, posDiff, *lambda)
	if !ok {
		return
	}
	*lambda += dl

	for _, v := range vs.Vertices {
		if inv[v] != 0 {
			s.move(v, s.grad[v].Scale(dl*inv[v]))
		}
	}
}

// deltaLambda computes the XPBD multiplier update
//
//	dl = (-C - alphaTilde*lambda - gamma*gradC.(x-pos)) / ((1+gamma)*w + alphaTilde)
//
// and counts projections that are skipped or not finite.
func (s *Solver) deltaLambda(f *frame, c, w, posDiff, lambda float32) (float32, bool) {
	if !math.IsFinite(c) || !math.IsFinite(w) || !math.IsFinite(posDiff) {
		f.report.NonFinite++
		return 0, false
	}

	denom := (1+f.gamma)*w + f.alphaTilde
	if denom <= denominatorEpsilon {
		f.report.Skipped++
		return 0, false
	}

	dl := (-c - f.alphaTilde*lambda - f.gamma*posDiff) / denom
	if !math.IsFinite(dl) {
		f.report.NonFinite++
		return 0, false
	}
	f.report.Projected++
	return dl, true
}

// move applies or accumulates a correction of vertex v.
func (s *Solver) move(v int, d math.Vec3) {
	if s.params.Mode == ModeJacobi {
		s.delta[v] = s.delta[v].Add(d)
		s.count[v]++
		return
	}
	s.x[v] = s.x[v].Add(d)
}

// applyAccumulated averages the Jacobi corrections into the candidate positions.
func (s *Solver) applyAccumulated() {
	for i, n := range s.count {
		if n == 0 {
			continue
		}
		s.x[i] = s.x[i].AddScaled(s.delta[i], 1/float32(n))
		s.delta[i] = math.Vec3{}
		s.count[i] = 0
	}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
