package config

import (
	"flag"
	"time"
)

// flagValues are the command-line overrides bound to one flag set.
type flagValues struct {
	set *flag.FlagSet

	config   *string
	debug    *bool
	substeps *int
	alpha    *float64
	beta     *float64
	duration *time.Duration
	realtime *bool
	output   *string
	watch    *bool
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	return &flagValues{
		set:      fs,
		config:   fs.String("config", "", "Path to config file (.yaml or .toml)"),
		debug:    fs.Bool("debug", false, "Enable debug logging"),
		substeps: fs.Int("substeps", 0, "Solver substeps per frame"),
		alpha:    fs.Float64("alpha", 0, "Constraint compliance (0 = rigid)"),
		beta:     fs.Float64("beta", 0, "Constraint damping"),
		duration: fs.Duration("duration", 0, "Simulated time to run (0 = until interrupted)"),
		realtime: fs.Bool("realtime", false, "Pace frames to wall-clock time"),
		output:   fs.String("output", "", "Write the final mesh to this OBJ file"),
		watch:    fs.Bool("watch", false, "Reload gravity, alpha and beta when the config file changes"),
	}
}

var cliFlags = registerFlags(flag.CommandLine)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *cliFlags.config
}

// WatchEnabled reports whether --watch was given.
func WatchEnabled() bool {
	return *cliFlags.watch
}

// apply copies every flag that was set explicitly into cfg, so zero is a
// valid override for alpha and beta.
func (v *flagValues) apply(cfg *Config) {
	v.set.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			if *v.debug {
				cfg.Logging.Level = "debug"
			}
		case "substeps":
			cfg.Simulation.Substeps = *v.substeps
		case "alpha":
			cfg.Simulation.Alpha = float32(*v.alpha)
		case "beta":
			cfg.Simulation.Beta = float32(*v.beta)
		case "duration":
			cfg.Run.Duration = Duration(*v.duration)
		case "realtime":
			cfg.Run.Realtime = *v.realtime
		case "output":
			cfg.Run.Output = *v.output
		}
	})
}
