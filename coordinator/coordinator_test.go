package coordinator

import (
	"testing"

	"go.uber.org/zap"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/constraint"
	"github.com/quillphysics/quill/entity"
	"github.com/quillphysics/quill/materials"
)

func newTestCoordinator() *Coordinator {
	settings := Settings{
		FixedDT:            1.0 / 60.0,
		Gravity:            mgl64.Vec3{0, -9.81, 0},
		VelocityIterations: 8,
		PositionIterations: 3,
	}
	return New(settings, materials.NewMixTable(), zap.NewNop())
}

func dynamicSphere(pos mgl64.Vec3) *body.RigidBody {
	return body.NewBuilder().
		Position(pos).
		Shape(&body.Sphere{Radius: 0.5}).
		Build()
}

func staticPlane() *body.RigidBody {
	return body.NewBuilder().
		Kind(body.Static).
		Shape(&body.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0}).
		Build()
}

func mustBody(t *testing.T, c *Coordinator, h entity.Handle) *body.RigidBody {
	t.Helper()
	rb, ok := c.Body(h)
	if !ok {
		t.Fatalf("expected handle %v to resolve to a live body", h)
	}
	return rb
}

func TestCreateBodyIntegratesGravity(t *testing.T) {
	c := newTestCoordinator()
	defer c.Detach()

	h := c.CreateBody(dynamicSphere(mgl64.Vec3{0, 5, 0}))

	startY := mustBody(t, c, h).Transform.Position.Y()
	c.StepSimulation()
	afterY := mustBody(t, c, h).Transform.Position.Y()

	if afterY >= startY {
		t.Fatalf("expected gravity to pull the body down in one step, start=%v after=%v", startY, afterY)
	}
}

func TestStaticBodyVisibleToExistingWorker(t *testing.T) {
	c := newTestCoordinator()
	defer c.Detach()

	// Spawn a worker first via a dynamic body, then add the static
	// plane afterward -- CreateBody must broadcast it to that worker
	// rather than silently drop it, since island.Manager.Insert alone
	// never touches an island for a non-connecting seed.
	ball := c.CreateBody(dynamicSphere(mgl64.Vec3{0, 2, 0}))
	c.CreateBody(staticPlane())

	for i := 0; i < 180; i++ {
		c.StepSimulation()
	}

	rb := mustBody(t, c, ball)
	if rb.Transform.Position.Y() < 0.4 {
		t.Fatalf("ball fell through a static plane added after its worker started: height %v", rb.Transform.Position.Y())
	}
}

func TestExcludeCollisionPreventsManifold(t *testing.T) {
	c := newTestCoordinator()
	defer c.Detach()

	// Joined so both bodies are forced into the same island/worker;
	// without the joint they would land in separate islands and never
	// share a broadphase pass regardless of ExcludeCollision.
	a := c.CreateBody(dynamicSphere(mgl64.Vec3{0, 1, 0}))
	b := c.CreateBody(dynamicSphere(mgl64.Vec3{0, 1, 0}))
	c.CreateJoint(a, b, func(bodyA, bodyB *body.RigidBody) constraint.Constraint {
		return constraint.NewPointToPoint(bodyA, bodyB, mgl64.Vec3{}, mgl64.Vec3{})
	})
	c.ExcludeCollision(a, b)

	for i := 0; i < 10; i++ {
		c.StepSimulation()
	}

	if c.ManifoldExists(a, b) {
		t.Fatalf("expected ExcludeCollision to suppress the manifold between overlapping bodies")
	}
}

func TestDetachClearsRegistry(t *testing.T) {
	c := newTestCoordinator()
	c.CreateBody(dynamicSphere(mgl64.Vec3{0, 1, 0}))
	c.CreateBody(staticPlane())

	c.Detach()

	count := 0
	c.VisitBodies(func(_ entity.Handle, _ *body.RigidBody) { count++ })
	if count != 0 {
		t.Fatalf("expected Detach to clear every body, found %d remaining", count)
	}
}
