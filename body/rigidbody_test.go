package body

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestStaticBodyHasInfiniteMass(t *testing.T) {
	rb := NewRigidBody(Static, &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, NewTransform())
	if rb.InverseMass != 0 {
		t.Fatalf("static body must have zero inverse mass, got %f", rb.InverseMass)
	}
	if !math.IsInf(rb.Mass, 1) {
		t.Fatalf("static body must have infinite mass, got %f", rb.Mass)
	}
}

func TestKinematicBodyHasInfiniteMass(t *testing.T) {
	rb := NewRigidBody(Kinematic, &Sphere{Radius: 1}, NewTransform())
	if rb.InverseMass != 0 {
		t.Fatalf("kinematic body must have zero inverse mass, got %f", rb.InverseMass)
	}
}

func TestDynamicBodyHasFiniteMass(t *testing.T) {
	rb := NewRigidBody(Dynamic, &Sphere{Radius: 1}, NewTransform())
	if rb.InverseMass <= 0 {
		t.Fatalf("dynamic body must have positive inverse mass, got %f", rb.InverseMass)
	}
}

func TestBodyWithoutMaterialIsSensor(t *testing.T) {
	rb := NewBuilder().Shape(&Sphere{Radius: 1}).Build()
	if !rb.IsSensor() {
		t.Fatalf("body built without Material() should be a sensor")
	}

	rb2 := NewBuilder().Shape(&Sphere{Radius: 1}).Material(DefaultMaterial()).Build()
	if rb2.IsSensor() {
		t.Fatalf("body built with Material() should not be a sensor")
	}
}

func TestWakeClearsSleepState(t *testing.T) {
	rb := NewRigidBody(Dynamic, &Sphere{Radius: 1}, NewTransform())
	rb.Sleeping = true
	rb.SleepTimer = 5
	rb.Wake()
	if rb.Sleeping || rb.SleepTimer != 0 {
		t.Fatalf("Wake should clear sleeping state, got sleeping=%v timer=%f", rb.Sleeping, rb.SleepTimer)
	}
}

func TestCollisionFilterMasking(t *testing.T) {
	a := CollisionFilter{Group: 1, Mask: 2}
	b := CollisionFilter{Group: 2, Mask: 1}
	if !a.CanCollideWith(b) {
		t.Fatalf("complementary group/mask pairs should collide")
	}

	c := CollisionFilter{Group: 4, Mask: 8}
	if a.CanCollideWith(c) {
		t.Fatalf("disjoint group/mask pairs should not collide")
	}
}

func TestMaterialMixMultipliesCoefficients(t *testing.T) {
	a := Material{Friction: 0.2, Restitution: 0.5, NormalStiffness: 100}
	b := Material{Friction: 0.8, Restitution: 0.4, NormalStiffness: 40}
	m := Mix(a, b)
	if !approxEqual(m.Friction, 0.16, 1e-9) {
		t.Fatalf("expected mixed friction 0.16, got %f", m.Friction)
	}
	if !approxEqual(m.Restitution, 0.2, 1e-9) {
		t.Fatalf("expected mixed restitution 0.2, got %f", m.Restitution)
	}
	if !approxEqual(m.NormalStiffness, 4000, 1e-6) {
		t.Fatalf("expected mixed stiffness 4000, got %f", m.NormalStiffness)
	}
}

func TestBuilderPanicsWithoutShape(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Build without a Shape to panic")
		}
	}()
	NewBuilder().Build()
}
