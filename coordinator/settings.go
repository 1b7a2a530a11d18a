package coordinator

import "github.com/go-gl/mathgl/mgl64"

// Settings is the subset of config.Config that propagates to workers
// via settings-change messages rather than being read once at attach
// time, per spec.md §6's set_paused/set_fixed_dt/set_gravity/
// set_solver_*_iterations mutators.
type Settings struct {
	Paused             bool
	FixedDT            float64
	Gravity            mgl64.Vec3
	VelocityIterations int
	PositionIterations int
}
