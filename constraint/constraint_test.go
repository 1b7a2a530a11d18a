package constraint

import (
	"testing"

	"github.com/quillphysics/quill/body"

	"github.com/go-gl/mathgl/mgl64"
)

func dynamicSphere(pos mgl64.Vec3) *body.RigidBody {
	t := body.NewTransform()
	t.Position = pos
	rb := body.NewRigidBody(body.Dynamic, &body.Sphere{Radius: 0.5}, t)
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

func TestJacobianEffectiveMassIsPositiveForTwoDynamicBodies(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0, 0})
	b := dynamicSphere(mgl64.Vec3{1, 0, 0})

	m := jacobianEffectiveMass(mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, a, b)
	if m <= 0 {
		t.Fatalf("expected positive effective mass, got %f", m)
	}
}

func TestJacobianEffectiveMassIsZeroAgainstStaticWithZeroInverseMassPair(t *testing.T) {
	a := staticPlane()
	b := staticPlane()

	m := jacobianEffectiveMass(mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, a, b)
	if m != 0 {
		t.Fatalf("expected zero effective mass when both bodies have zero inverse mass, got %f", m)
	}
}

func TestClampRespectsBounds(t *testing.T) {
	if clamp(5, 0, 3) != 3 {
		t.Fatalf("expected clamp to cap at upper bound")
	}
	if clamp(-5, 0, 3) != 0 {
		t.Fatalf("expected clamp to floor at lower bound")
	}
	if clamp(1, 0, 3) != 1 {
		t.Fatalf("expected clamp to pass through in-range value")
	}
}
