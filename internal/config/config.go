// Package config handles simulator configuration loading and management.
package config

import (
	"fmt"
	"time"
)

// Config holds all simulator settings.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation" toml:"simulation"`
	Scene      SceneConfig      `yaml:"scene" toml:"scene"`
	Run        RunConfig        `yaml:"run" toml:"run"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// SimulationConfig holds solver and environment settings.
type SimulationConfig struct {
	Gravity    [3]float32 `yaml:"gravity" toml:"gravity"`
	Substeps   int        `yaml:"substeps" toml:"substeps"`
	Iterations int        `yaml:"iterations" toml:"iterations"`
	Alpha      float32    `yaml:"alpha" toml:"alpha"` // compliance
	Beta       float32    `yaml:"beta" toml:"beta"`   // damping
	Pressure   float32    `yaml:"pressure" toml:"pressure"`

	VolumeGranularity string `yaml:"volume_granularity" toml:"volume_granularity"` // body or triangle
	Jacobi            bool   `yaml:"jacobi" toml:"jacobi"`
	DebugAbort        bool   `yaml:"debug_abort" toml:"debug_abort"`

	EnableDistance  bool `yaml:"enable_distance" toml:"enable_distance"`
	EnableVolume    bool `yaml:"enable_volume" toml:"enable_volume"`
	EnableCollision bool `yaml:"enable_collision" toml:"enable_collision"`
}

// SceneConfig lists the bodies to simulate.
type SceneConfig struct {
	Name   string       `yaml:"name" toml:"name"`
	Bodies []BodyConfig `yaml:"bodies" toml:"bodies"`
}

// BodyConfig describes one body and its initial placement.
type BodyConfig struct {
	Name     string     `yaml:"name" toml:"name"`
	Mesh     string     `yaml:"mesh" toml:"mesh"` // primitive name or OBJ path
	Size     float32    `yaml:"size" toml:"size"` // primitive size
	Position [3]float32 `yaml:"position" toml:"position"`
	Rotation [3]float32 `yaml:"rotation" toml:"rotation"` // Euler degrees
	Scale    [3]float32 `yaml:"scale" toml:"scale"`       // zero means 1
	Mass     float32    `yaml:"mass" toml:"mass"`         // zero means 1 per vertex
	Static   bool       `yaml:"static" toml:"static"`
	Pinned   []int      `yaml:"pinned" toml:"pinned"`
}

// RunConfig holds run loop settings.
type RunConfig struct {
	FPS        int      `yaml:"fps" toml:"fps"`
	Duration   Duration `yaml:"duration" toml:"duration"`       // zero runs until interrupted
	Realtime   bool     `yaml:"realtime" toml:"realtime"`       // pace frames to wall-clock time
	Output     string   `yaml:"output" toml:"output"`           // OBJ written after the run
	StatsEvery int      `yaml:"stats_every" toml:"stats_every"` // frames between stats logs, 0 disables
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a Config with the reference scene: a unit cube dropped from
// height 5 onto a static floor.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Gravity:           [3]float32{0, -9.81, 0},
			Substeps:          5,
			Iterations:        1,
			Alpha:             0.0001,
			Beta:              5.0,
			Pressure:          1.0,
			VolumeGranularity: "body",
			EnableDistance:    true,
			EnableVolume:      true,
			EnableCollision:   true,
		},
		Scene: SceneConfig{
			Name: "drop",
			Bodies: []BodyConfig{
				{Name: "floor", Mesh: "plane", Size: 20, Static: true},
				{Name: "cube", Mesh: "cube", Size: 1, Position: [3]float32{0, 5, 0}},
			},
		},
		Run: RunConfig{
			FPS:        60,
			Duration:   Duration(10 * time.Second),
			StatsEvery: 60,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
