// Package config loads the engine's sectioned TOML configuration,
// mirroring the pack's sectioned-struct-with-toml-tags pattern rather
// than a flat set of top-level knobs.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-gl/mathgl/mgl64"
)

// Config is the full set of attach-time and mutable-at-runtime engine
// settings. Solver/World fields map directly onto the settings
// mutators spec.md §6 names (SetGravity, SetFixedDT, ...); Broadphase
// and Logging round out the ambient stack.
type Config struct {
	World      WorldConfig      `toml:"world"`
	Solver     SolverConfig     `toml:"solver"`
	Broadphase BroadphaseConfig `toml:"broadphase"`
	Logging    LoggingConfig    `toml:"logging"`
}

type WorldConfig struct {
	FixedDT    float64    `toml:"fixed_dt"`
	GravityX   float64    `toml:"gravity_x"`
	GravityY   float64    `toml:"gravity_y"`
	GravityZ   float64    `toml:"gravity_z"`
	MaxSubstep int        `toml:"max_substeps"`
	WorkerPool int        `toml:"worker_pool_size"`
}

func (w WorldConfig) Gravity() mgl64.Vec3 {
	return mgl64.Vec3{w.GravityX, w.GravityY, w.GravityZ}
}

type SolverConfig struct {
	VelocityIterations    int     `toml:"velocity_iterations"`
	PositionIterations    int     `toml:"position_iterations"`
	LinearSleepThreshold  float64 `toml:"linear_sleep_threshold"`
	AngularSleepThreshold float64 `toml:"angular_sleep_threshold"`
	TimeToSleep           float64 `toml:"time_to_sleep"`
}

type BroadphaseConfig struct {
	Margin             float64 `toml:"margin"`
	BreakingThreshold  float64 `toml:"breaking_threshold"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn"
}

// Default returns the configuration Attach uses when the caller passes
// no TOML file, matching spec.md §4.6/§4.7/§4.8's own stated defaults.
func Default() *Config {
	return &Config{
		World: WorldConfig{
			FixedDT:    1.0 / 60.0,
			GravityY:   -9.81,
			MaxSubstep: 1,
			WorkerPool: 4,
		},
		Solver: SolverConfig{
			VelocityIterations:    8,
			PositionIterations:    3,
			LinearSleepThreshold:  0.01,
			AngularSleepThreshold: 0.01,
			TimeToSleep:           0.5,
		},
		Broadphase: BroadphaseConfig{
			Margin:            0.1,
			BreakingThreshold: 0.02,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a TOML file on top of Default(), so an incomplete file
// only overrides the sections it actually names.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save round-trips cfg back to a TOML file, for tools that edit
// settings programmatically and want to persist the result.
func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
