package quill

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/config"
	"github.com/quillphysics/quill/entity"
)

func groundPlane() *body.Builder {
	return body.NewBuilder().
		Kind(body.Static).
		Shape(&body.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0})
}

func TestAttachDetachRoundTrip(t *testing.T) {
	w := Attach(nil)
	w.MakeRigidBody(groundPlane())

	before := 0
	w.VisitBodies(func(_ entity.Handle, _ *body.RigidBody) { before++ })
	if before == 0 {
		t.Fatalf("expected at least one body before Detach")
	}

	w.Detach()

	after := 0
	w.VisitBodies(func(_ entity.Handle, _ *body.RigidBody) { after++ })
	if after != 0 {
		t.Fatalf("expected Detach to clear every body, found %d remaining", after)
	}
}

func TestFreeFallSettlesOnPlane(t *testing.T) {
	w := Attach(config.Default())
	defer w.Detach()

	w.MakeRigidBody(groundPlane())
	ball := w.MakeRigidBody(body.NewBuilder().
		Position(mgl64.Vec3{0, 5, 0}).
		Shape(&body.Sphere{Radius: 0.5}))

	start, ok := w.Body(ball)
	if !ok {
		t.Fatalf("expected ball to exist right after creation")
	}
	startHeight := start.Transform.Position.Y()

	for i := 0; i < 180; i++ {
		w.StepSimulation()
	}

	after, ok := w.Body(ball)
	if !ok {
		t.Fatalf("expected ball to still exist after stepping")
	}
	if after.Transform.Position.Y() >= startHeight {
		t.Fatalf("expected ball to fall, started at %v ended at %v", startHeight, after.Transform.Position.Y())
	}
	if after.Transform.Position.Y() < 0.4 {
		t.Fatalf("ball fell through the ground plane: height %v", after.Transform.Position.Y())
	}
}

func TestRaycastHitsStaticPlane(t *testing.T) {
	w := Attach(config.Default())
	defer w.Detach()

	plane := w.MakeRigidBody(groundPlane())

	hit, ok := w.Raycast(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -5, 0})
	if !ok {
		t.Fatalf("expected raycast to hit the ground plane")
	}
	if hit.Handle != plane {
		t.Fatalf("expected raycast to report the plane handle, got %v", hit.Handle)
	}
}

func TestUpdateCapsCatchUpSteps(t *testing.T) {
	w := Attach(config.Default())
	defer w.Detach()

	w.MakeRigidBody(groundPlane())
	ball := w.MakeRigidBody(body.NewBuilder().
		Position(mgl64.Vec3{0, 5, 0}).
		Shape(&body.Sphere{Radius: 0.5}))

	// A huge elapsed duration must not hang or panic; Update caps the
	// number of fixed steps it replays in one call.
	w.Update(10 * time.Minute)

	if _, ok := w.Body(ball); !ok {
		t.Fatalf("expected ball to survive a large Update catch-up")
	}
}

func TestFilteredBodiesNeverManifold(t *testing.T) {
	w := Attach(config.Default())
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

	for i := 0; i < 10; i++ {
		w.StepSimulation()
	}

	if w.ManifoldExists(a, b) {
		t.Fatalf("expected disjoint collision groups to never share a manifold")
	}
}
