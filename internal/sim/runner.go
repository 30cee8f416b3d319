package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/softbody/internal/config"
	"github.com/Faultbox/softbody/internal/constraint"
	"github.com/Faultbox/softbody/internal/scene"
	"github.com/Faultbox/softbody/internal/solver"
)

// Stats summarizes a run.
type Stats struct {
	Frames    int
	Simulated time.Duration
	Wall      time.Duration
	Report    solver.Report
}

// Runner advances a scene at a fixed time step.
type Runner struct {
	scene *scene.Scene
	cfg   config.RunConfig
	log   *zap.Logger
	timer *Timer

	tunables chan scene.Tunables
}

// NewRunner creates a runner for s.
func NewRunner(s *scene.Scene, cfg config.RunConfig, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		scene:    s,
		cfg:      cfg,
		log:      log,
		timer:    NewTimer(),
		tunables: make(chan scene.Tunables, 1),
	}
}

// PushTunables queues new tunables for the next frame boundary. A pending
// update that was not applied yet is replaced. Safe to call from any goroutine.
func (r *Runner) PushTunables(t scene.Tunables) {
	for {
		select {
		case r.tunables <- t:
			return
		default:
		}
		select {
		case <-r.tunables:
		default:
		}
	}
}

// frameLimit returns the number of frames in the configured duration, or -1
// to run until the context is cancelled.
func (r *Runner) frameLimit() int {
	if r.cfg.Duration <= 0 {
		return -1
	}
	fps := time.Duration(r.cfg.FPS)
	return int((r.cfg.Duration.Std()*fps + time.Second/2) / time.Second)
}

// Run steps the scene with dt = 1/FPS until the duration is simulated or ctx
// is cancelled. In realtime mode every frame is stretched to 1/FPS of wall time.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var st Stats
	if r.cfg.FPS <= 0 {
		return st, fmt.Errorf("run: fps must be > 0, got %d", r.cfg.FPS)
	}

	dt := 1 / float32(r.cfg.FPS)
	limit := r.frameLimit()
	start := time.Now()

	r.log.Info("starting simulation loop",
		zap.Int("fps", r.cfg.FPS),
		zap.Int("frames", limit),
		zap.Bool("realtime", r.cfg.Realtime),
	)

	// FPS counter
	frameCount := 0
	fpsTimer := time.Now()

	for limit < 0 || st.Frames < limit {
		if err := ctx.Err(); err != nil {
			r.log.Info("simulation interrupted", zap.Int("frame", st.Frames))
			break
		}
		r.timer.StartFrame()

		r.applyTunables()

		rep, err := r.scene.Update(dt)
		if err != nil {
			return st, fmt.Errorf("frame %d: %w", st.Frames, err)
		}
		st.Report.Merge(rep)
		st.Report.Disabled = uniqueCategories(st.Report.Disabled)
		st.Frames++
		st.Simulated = time.Duration(st.Frames) * time.Second / time.Duration(r.cfg.FPS)

		if r.cfg.StatsEvery > 0 && st.Frames%r.cfg.StatsEvery == 0 {
			r.logStats(st, rep)
		}

		if r.cfg.Realtime {
			r.timer.Cap(r.cfg.FPS)
		}

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			r.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Duration("frame_time", r.timer.Delta()),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	st.Wall = time.Since(start)
	r.log.Info("simulation finished",
		zap.Int("frames", st.Frames),
		zap.Duration("simulated", st.Simulated),
		zap.Duration("wall", st.Wall),
		zap.Int("aborted_substeps", st.Report.Aborted),
		zap.Int("non_finite", st.Report.NonFinite),
	)
	return st, nil
}

// applyTunables applies the latest pending update, if any.
func (r *Runner) applyTunables() {
	select {
	case t := <-r.tunables:
		if err := r.scene.SetTunables(t); err != nil {
			r.log.Warn("tunables rejected", zap.Error(err))
		}
	default:
	}
}

func (r *Runner) logStats(st Stats, rep solver.Report) {
	for _, b := range r.scene.Stats() {
		fields := []zap.Field{
			zap.Int("frame", st.Frames),
			zap.Duration("time", st.Simulated),
			zap.String("body", b.Name),
			zap.Float32("centroid_y", b.Centroid.Y),
			zap.Float32("kinetic", b.Kinetic),
			zap.Float32("potential", b.Potential),
			zap.Float32("residual_distance", rep.MaxResidual[0]),
		}
		if b.RestVolume != 0 {
			fields = append(fields, zap.Float32("volume_ratio", b.Volume/b.RestVolume))
		}
		r.log.Info("frame stats", fields...)
	}
}

func uniqueCategories(cats []constraint.Category) []constraint.Category {
	var seen [len(constraint.Categories)]bool
	out := cats[:0]
	for _, c := range cats {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
