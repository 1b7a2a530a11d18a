package solver

import (
	"math"
	"testing"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/constraint"
	"github.com/quillphysics/quill/entity"
	"github.com/quillphysics/quill/narrowphase"

	"github.com/go-gl/mathgl/mgl64"
)

func dynamicSphere(pos, velocity mgl64.Vec3) *body.RigidBody {
	t := body.NewTransform()
	t.Position = pos
	rb := body.NewRigidBody(body.Dynamic, &body.Sphere{Radius: 0.5}, t)
	rb.LinearVelocity = velocity
	rb.HasMaterial = true
	rb.Material = body.DefaultMaterial()
	return rb
}

func staticPlane() *body.RigidBody {
	t := body.NewTransform()
	rb := body.NewRigidBody(body.Static, &body.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0}, t)
	rb.HasMaterial = true
	rb.Material = body.DefaultMaterial()
	return rb
}

func restingContact(penetration, restitution float64) *constraint.ContactConstraint {
	mf := narrowphase.NewManifold(entity.Handle{Index: 1}, entity.Handle{Index: 2})
	mf.Points = []narrowphase.Point{{
		LocalA:   mgl64.Vec3{0, -0.5, 0},
		LocalB:   mgl64.Vec3{0, 0, 0},
		Normal:   mgl64.Vec3{0, -1, 0},
		Distance: -penetration,
		Material: body.Material{Friction: 0.5, Restitution: restitution},
	}}
	return &constraint.ContactConstraint{Manifold: mf}
}

func TestVelocitySolveStopsPenetratingBodyFromSinkingFurther(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0.45, 0}, mgl64.Vec3{0, -3, 0})
	b := staticPlane()

	cc := restingContact(0.05, 0)
	cc.BodyA, cc.BodyB = a, b

	rows := cc.Prepare(1.0 / 60.0)
	v := NewVelocity()
	v.Solve(rows, false)

	if a.LinearVelocity.Y() < 0 {
		t.Fatalf("expected the normal row to remove the closing velocity component, got vy=%f", a.LinearVelocity.Y())
	}
}

func TestVelocitySolveWarmStartsFromPersistedImpulse(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0.45, 0}, mgl64.Vec3{0, -3, 0})
	b := staticPlane()

	cc := restingContact(0.05, 0)
	cc.BodyA, cc.BodyB = a, b

	rows := cc.Prepare(1.0 / 60.0)
	normalImpulsePersist := rows[0].Persist
	*normalImpulsePersist = 10

	v := NewVelocity()
	v.Solve(rows, false)

	if a.LinearVelocity.Y() < 0 {
		t.Fatalf("expected warm-started impulse to still leave a non-penetrating velocity, got vy=%f", a.LinearVelocity.Y())
	}
}

func TestVelocitySolveFrictionPairRespectsCircleClamp(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0.45, 0}, mgl64.Vec3{5, -3, 0})
	a.Material.Friction = 0.5
	b := staticPlane()

	mf := narrowphase.NewManifold(entity.Handle{Index: 1}, entity.Handle{Index: 2})
	mf.Points = []narrowphase.Point{{
		LocalA:   mgl64.Vec3{0, -0.5, 0},
		LocalB:   mgl64.Vec3{0, 0, 0},
		Normal:   mgl64.Vec3{0, -1, 0},
		Distance: -0.05,
		Material: body.Material{Friction: 0.5},
	}}
	cc := &constraint.ContactConstraint{BodyA: a, BodyB: b, Manifold: mf}
	rows := cc.Prepare(1.0 / 60.0)

	v := NewVelocity()
	v.Solve(rows, false)

	tan1, tan2 := rows[1], rows[2]
	combined := math.Hypot(tan1.Impulse, tan2.Impulse)
	limit := tan1.FrictionCoeff * rows[0].Impulse
	if combined > limit+1e-6 {
		t.Fatalf("expected combined tangent impulse %f to respect the friction circle limit %f", combined, limit)
	}
}

func TestVelocitySolveDedicatedRestitutionBouncesApproachingBody(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0.45, 0}, mgl64.Vec3{0, -10, 0})
	b := staticPlane()

	cc := restingContact(0.05, 0.8)
	cc.BodyA, cc.BodyB = a, b
	cc.DedicatedRestitution = true

	rows := cc.Prepare(1.0 / 60.0)
	v := NewVelocity()
	v.Solve(rows, true)

	if a.LinearVelocity.Y() <= 0 {
		t.Fatalf("expected restitution to send the body away from the plane with positive vy, got %f", a.LinearVelocity.Y())
	}
}

func TestVelocitySolveLeavesZeroVelocityZeroWithNoForces(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{})
	b := staticPlane()

	mf := narrowphase.NewManifold(entity.Handle{Index: 1}, entity.Handle{Index: 2})
	cc := &constraint.ContactConstraint{BodyA: a, BodyB: b, Manifold: mf}

	rows := cc.Prepare(1.0 / 60.0)
	if rows != nil {
		t.Fatalf("expected no rows for an empty manifold, got %d", len(rows))
	}

	v := NewVelocity()
	v.Solve(rows, false)
	if a.LinearVelocity != (mgl64.Vec3{}) {
		t.Fatalf("expected velocity to remain exactly zero")
	}
}
