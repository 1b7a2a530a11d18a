// Command quillbench drives a handful of small scenes through World
// end-to-end, the way the teacher's example/simpleScene exercised a
// single falling cube, but logged through zap instead of scattered
// fmt.Printf calls.
package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillphysics/quill"
	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/config"
	"github.com/quillphysics/quill/entity"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	freeFall(logger)
	restingStack(logger)
	filterRejection(logger)
	raycastThroughCompound(logger)
}

func groundPlane() *body.Builder {
	return body.NewBuilder().
		Kind(body.Static).
		Shape(&body.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0})
}

// freeFall drops a sphere onto a static plane and logs when it settles.
func freeFall(logger *zap.Logger) {
	logger.Info("scenario: free fall")

	w := quill.Attach(config.Default())
	defer w.Detach()

	w.MakeRigidBody(groundPlane())
	ball := w.MakeRigidBody(body.NewBuilder().
		Position(mgl64.Vec3{0, 5, 0}).
		Shape(&body.Sphere{Radius: 0.5}))

	runFor(w, 3*time.Second, func(step int) {
		rb, ok := w.Body(ball)
		if !ok {
			return
		}
		if step%60 == 0 {
			logger.Debug("ball falling",
				zap.Int("step", step),
				zap.Float64("height", rb.Transform.Position.Y()),
				zap.Bool("sleeping", rb.Sleeping))
		}
	})

	rb, _ := w.Body(ball)
	logger.Info("ball settled", zap.Float64("height", rb.Transform.Position.Y()), zap.Bool("sleeping", rb.Sleeping))
}

// restingStack builds three boxes stacked on the ground and checks that
// the whole stack eventually sleeps, exercising island merge across
// three separate bodies.
func restingStack(logger *zap.Logger) {
	logger.Info("scenario: resting stack")

	w := quill.Attach(config.Default())
	defer w.Detach()

	w.MakeRigidBody(groundPlane())

	half := mgl64.Vec3{0.5, 0.5, 0.5}
	box1 := w.MakeRigidBody(body.NewBuilder().Position(mgl64.Vec3{0, 0.5, 0}).Shape(&body.Box{HalfExtents: half}))
	box2 := w.MakeRigidBody(body.NewBuilder().Position(mgl64.Vec3{0, 1.5, 0}).Shape(&body.Box{HalfExtents: half}))
	box3 := w.MakeRigidBody(body.NewBuilder().Position(mgl64.Vec3{0, 2.5, 0}).Shape(&body.Box{HalfExtents: half}))

	runFor(w, 4*time.Second, nil)

	top, _ := w.Body(box3)
	logger.Info("stack settled",
		zap.Bool("box1 asleep", asleep(w, box1)),
		zap.Bool("box2 asleep", asleep(w, box2)),
		zap.Bool("box3 asleep", asleep(w, box3)),
		zap.Float64("top height", top.Transform.Position.Y()))
}

func asleep(w *quill.World, h entity.Handle) bool {
	rb, ok := w.Body(h)
	return ok && rb.Sleeping
}

// filterRejection places two overlapping spheres in disjoint collision
// groups and confirms no manifold ever forms between them.
func filterRejection(logger *zap.Logger) {
	logger.Info("scenario: filter rejection")

	w := quill.Attach(config.Default())
	defer w.Detach()

	filterA := body.CollisionFilter{Group: 1, Mask: 1}
	filterB := body.CollisionFilter{Group: 2, Mask: 2}

	a := w.MakeRigidBody(body.NewBuilder().
		Position(mgl64.Vec3{0, 1, 0}).
		Shape(&body.Sphere{Radius: 0.5}).
		Filter(filterA))
	b := w.MakeRigidBody(body.NewBuilder().
		Position(mgl64.Vec3{0, 1, 0}).
		Shape(&body.Sphere{Radius: 0.5}).
		Filter(filterB))

	runFor(w, 1*time.Second, nil)

	logger.Info("filtered pair", zap.Bool("manifold exists", w.ManifoldExists(a, b)))
}

// raycastThroughCompound fires a ray straight down through a compound
// shape sitting above the ground and reports which child it struck.
func raycastThroughCompound(logger *zap.Logger) {
	logger.Info("scenario: raycast through compound")

	w := quill.Attach(config.Default())
	defer w.Detach()

	w.MakeRigidBody(groundPlane())

	lowerChild := body.NewTransform()
	upperChild := body.NewTransform()
	upperChild.Position = mgl64.Vec3{0, 1, 0}
	compound := &body.Compound{
		Children: []body.CompoundChild{
			{Shape: &body.Sphere{Radius: 0.5}, Transform: lowerChild},
			{Shape: &body.Sphere{Radius: 0.5}, Transform: upperChild},
		},
	}
	w.MakeRigidBody(body.NewBuilder().
		Kind(body.Static).
		Position(mgl64.Vec3{0, 3, 0}).
		Shape(compound))

	hit, ok := w.Raycast(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, -10, 0})
	if !ok {
		logger.Info("raycast missed")
		return
	}
	logger.Info("raycast hit",
		zap.Int("child index", hit.Hit.ChildIndex),
		zap.Float64("distance", hit.Hit.Distance))
}

func runFor(w *quill.World, duration time.Duration, onStep func(step int)) {
	const dt = time.Second / 60
	steps := int(duration / dt)
	for i := 0; i < steps; i++ {
		w.StepSimulation()
		if onStep != nil {
			onStep(i)
		}
	}
}
