package broadphase

import (
	"testing"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/entity"
	"github.com/go-gl/mathgl/mgl64"
)

func TestMakePairIsOrderInsensitive(t *testing.T) {
	a := entity.Handle{Index: 5, Generation: 1}
	b := entity.Handle{Index: 2, Generation: 1}
	if makePair(a, b) != makePair(b, a) {
		t.Fatalf("makePair should normalize order regardless of argument order")
	}
}

func TestPhaseStepCreatesPairOnceForOverlappingDynamics(t *testing.T) {
	p := NewPhase(0.02)

	a := entity.Handle{Index: 1, Generation: 1}
	b := entity.Handle{Index: 2, Generation: 1}

	bodies := map[entity.Handle]*body.RigidBody{
		a: body.NewRigidBody(body.Dynamic, &body.Sphere{Radius: 1}, body.Transform{Position: mgl64.Vec3{0, 0, 0}, Rotation: mgl64.QuatIdent(), InverseRotation: mgl64.QuatIdent()}),
		b: body.NewRigidBody(body.Dynamic, &body.Sphere{Radius: 1}, body.Transform{Position: mgl64.Vec3{0.5, 0, 0}, Rotation: mgl64.QuatIdent(), InverseRotation: mgl64.QuatIdent()}),
	}
	lookup := func(h entity.Handle) (*body.RigidBody, bool) {
		rb, ok := bodies[h]
		return rb, ok
	}

	pairsCreated := 0
	p.Step([]entity.Handle{a, b}, lookup, 0.02, func(x, y entity.Handle) entity.Handle {
		pairsCreated++
		return entity.Handle{Index: 100, Generation: 1}
	})

	if pairsCreated != 1 {
		t.Fatalf("expected exactly 1 pair created for two overlapping spheres visited both directions, got %d", pairsCreated)
	}
	if !p.Pairs.Exists(a, b) {
		t.Fatalf("expected pair to be recorded as existing")
	}

	// Stepping again must not create a duplicate.
	p.Step([]entity.Handle{a, b}, lookup, 0.02, func(x, y entity.Handle) entity.Handle {
		pairsCreated++
		return entity.Handle{Index: 100, Generation: 1}
	})
	if pairsCreated != 1 {
		t.Fatalf("expected no new pairs on second step, got total %d", pairsCreated)
	}
}

func TestPhaseStepRejectsFilteredPair(t *testing.T) {
	p := NewPhase(0.02)
	a := entity.Handle{Index: 1, Generation: 1}
	b := entity.Handle{Index: 2, Generation: 1}

	rbA := body.NewRigidBody(body.Dynamic, &body.Sphere{Radius: 1}, body.NewTransform())
	rbB := body.NewRigidBody(body.Dynamic, &body.Sphere{Radius: 1}, body.NewTransform())
	rbA.Filter = body.CollisionFilter{Group: 1, Mask: 1}
	rbB.Filter = body.CollisionFilter{Group: 2, Mask: 2}

	bodies := map[entity.Handle]*body.RigidBody{a: rbA, b: rbB}
	lookup := func(h entity.Handle) (*body.RigidBody, bool) {
		rb, ok := bodies[h]
		return rb, ok
	}

	created := 0
	p.Step([]entity.Handle{a, b}, lookup, 0.02, func(x, y entity.Handle) entity.Handle {
		created++
		return entity.Handle{}
	})
	if created != 0 {
		t.Fatalf("expected filtered pair to be rejected, got %d pairs", created)
	}
}
