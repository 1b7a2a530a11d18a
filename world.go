// Package quill is a real-time, concurrent, island-partitioned 3D
// rigid-body physics engine. World is the entry point: attach it to a
// scene, create bodies and joints, and step it either on a fixed
// cadence (Update, driven by a wall-clock source) or one step at a
// time (StepSimulation, for tooling and tests).
package quill

import (
	"time"

	"go.uber.org/zap"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/config"
	"github.com/quillphysics/quill/constraint"
	"github.com/quillphysics/quill/coordinator"
	"github.com/quillphysics/quill/entity"
	"github.com/quillphysics/quill/materials"

	"github.com/go-gl/mathgl/mgl64"
)

// World owns one simulation's worth of bodies, joints, and islands. It
// is the thing Attach/Detach/Update/StepSimulation operate on.
type World struct {
	runtime *coordinator.Coordinator
	mix     *materials.MixTable
	logger  *zap.Logger
	cfg     *config.Config
}

// Attach creates a World from cfg (nil uses config.Default()),
// matching spec.md §6's attach: construction is cheap, no worker exists
// until the first body is created.
func Attach(cfg *config.Config) *World {
	if cfg == nil {
		cfg = config.Default()
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		logger = zap.NewNop()
	}

	settings := coordinator.Settings{
		FixedDT:            cfg.World.FixedDT,
		Gravity:            cfg.World.Gravity(),
		VelocityIterations: cfg.Solver.VelocityIterations,
		PositionIterations: cfg.Solver.PositionIterations,
	}

	mix := materials.NewMixTable()
	return &World{
		runtime: coordinator.New(settings, mix, logger),
		mix:     mix,
		logger:  logger,
		cfg:     cfg,
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level.SetLevel(zap.InfoLevel)
	}
	return cfg.Build()
}

// Detach tears down every worker the World spawned. After Detach, w
// must not be used again.
func (w *World) Detach() {
	w.runtime.Detach()
	_ = w.logger.Sync()
}

// Update advances the simulation by whatever whole number of fixed
// steps elapsed fits into elapsed, per spec.md §6.
func (w *World) Update(elapsed time.Duration) {
	w.runtime.Update(elapsed)
}

// StepSimulation advances exactly one fixed step regardless of Paused,
// the synchronous path tooling and tests drive directly.
func (w *World) StepSimulation() {
	w.runtime.StepSimulation()
}

// MakeRigidBody constructs a body from def and registers it, returning
// its handle, per spec.md §6's make_rigidbody.
func (w *World) MakeRigidBody(def *body.Builder) entity.Handle {
	return w.runtime.CreateBody(def.Build())
}

// DestroyRigidBody removes a body and its eventual contacts/joints.
func (w *World) DestroyRigidBody(h entity.Handle) {
	w.runtime.DestroyBody(h)
}

// SetMaterialOverride registers a designer override for how two
// material ids mix, per spec.md §4.3 step 6.
func (w *World) SetMaterialOverride(materialA, materialB uint32, mixed body.Material) {
	w.mix.SetOverride(materialA, materialB, mixed)
}

// SetPaused, SetFixedDT, SetGravity, SetSolverVelocityIterations, and
// SetSolverPositionIterations are the runtime settings mutators spec.md
// §6 names. The last four take effect on each worker's next step;
// SetPaused stops Update from stepping until it is cleared, while
// StepSimulation still steps.
func (w *World) SetPaused(paused bool)             { w.runtime.SetPaused(paused) }
func (w *World) SetFixedDT(dt float64)             { w.runtime.SetFixedDT(dt) }
func (w *World) SetGravity(g mgl64.Vec3)           { w.runtime.SetGravity(g) }
func (w *World) SetSolverVelocityIterations(n int) { w.runtime.SetSolverVelocityIterations(n) }
func (w *World) SetSolverPositionIterations(n int) { w.runtime.SetSolverPositionIterations(n) }

// ExcludeCollision suppresses manifold generation between a and b.
func (w *World) ExcludeCollision(a, b entity.Handle) {
	w.runtime.ExcludeCollision(a, b)
}

// ManifoldExists and GetManifoldEntity expose the contact query
// surface spec.md §6 names.
func (w *World) ManifoldExists(a, b entity.Handle) bool { return w.runtime.ManifoldExists(a, b) }
func (w *World) GetManifoldEntity(a, b entity.Handle) (entity.Handle, bool) {
	return w.runtime.GetManifoldEntity(a, b)
}

// VisitEdges calls f for every joint edge touching h.
func (w *World) VisitEdges(h entity.Handle, f func(neighbor, edge entity.Handle)) {
	w.runtime.VisitEdges(h, f)
}

// VisitBodies calls f for every live body in the world.
func (w *World) VisitBodies(f func(entity.Handle, *body.RigidBody)) {
	w.runtime.VisitBodies(f)
}

// Body resolves a handle to its current rigid body state.
func (w *World) Body(h entity.Handle) (*body.RigidBody, bool) {
	return w.runtime.Body(h)
}

// Raycast finds the nearest body struck by the segment from origin to
// target, per spec.md §6's raycast and §8 scenario 6.
func (w *World) Raycast(origin, target mgl64.Vec3) (coordinator.RaycastHit, bool) {
	return w.runtime.Raycast(origin, target)
}

// MakeConstraint builds a joint between a and b using factory, which
// receives the two bodies' worker-local pointers once the edge reaches
// its owning worker (see coordinator.JointFactory's doc comment for
// why this is a callback rather than a pre-built constraint.Constraint).
func (w *World) MakeConstraint(a, b entity.Handle, factory func(bodyA, bodyB *body.RigidBody) constraint.Constraint) entity.Handle {
	return w.runtime.CreateJoint(a, b, factory)
}

// RemoveConstraint detaches a joint, splitting its island if nothing
// else keeps its two sides connected.
func (w *World) RemoveConstraint(edge entity.Handle) {
	w.runtime.RemoveJoint(edge)
}
