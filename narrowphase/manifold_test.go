package narrowphase

import (
	"testing"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/entity"

	"github.com/go-gl/mathgl/mgl64"
)

func sphereBody(center mgl64.Vec3, radius float64) *body.RigidBody {
	t := body.NewTransform()
	t.Position = center
	rb := body.NewRigidBody(body.Dynamic, &body.Sphere{Radius: radius}, t)
	rb.HasMaterial = true
	rb.Material = body.DefaultMaterial()
	return rb
}

func identityMix(a, b body.Material) body.Material {
	return body.Mix(a, b)
}

func TestManifoldInsertsNewPointFromCandidate(t *testing.T) {
	a := sphereBody(mgl64.Vec3{0, 0, 0}, 1)
	b := sphereBody(mgl64.Vec3{1.5, 0, 0}, 1)

	mf := NewManifold(entity.Handle{Index: 1, Generation: 1}, entity.Handle{Index: 2, Generation: 1})
	candidates := GenerateCandidates(a, b)
	if len(candidates) == 0 {
		t.Fatalf("expected overlapping spheres to produce at least one candidate")
	}

	mf.Update(a, b, candidates, identityMix, mgl64.Vec3{0, 1, 0})
	if len(mf.Points) == 0 {
		t.Fatalf("expected manifold to gain a point from candidate")
	}
	if mf.Points[0].Distance >= 0 {
		t.Fatalf("expected negative (penetrating) distance, got %f", mf.Points[0].Distance)
	}
}

func TestManifoldRetiresPointPastBreakingThreshold(t *testing.T) {
	a := sphereBody(mgl64.Vec3{0, 0, 0}, 1)
	b := sphereBody(mgl64.Vec3{2.1, 0, 0}, 1)

	mf := NewManifold(entity.Handle{Index: 1}, entity.Handle{Index: 2})
	mf.Points = []Point{{
		LocalA:   mgl64.Vec3{1, 0, 0},
		LocalB:   mgl64.Vec3{-1, 0, 0},
		Normal:   mgl64.Vec3{1, 0, 0},
		Distance: 0,
	}}

	mf.RecomputeSeparation(a, b)
	if mf.Points[0].Distance < body.ContactBreakingThreshold {
		t.Fatalf("expected recomputed separation to exceed breaking threshold as setup for this test, got %f", mf.Points[0].Distance)
	}

	mf.retirePoints(a, b)
	if len(mf.Points) != 0 {
		t.Fatalf("expected point to be retired once separation exceeds breaking threshold")
	}
}

func TestManifoldMergesCandidateIntoNearbyExistingPoint(t *testing.T) {
	a := sphereBody(mgl64.Vec3{0, 0, 0}, 1)
	b := sphereBody(mgl64.Vec3{1.5, 0, 0}, 1)

	mf := NewManifold(entity.Handle{Index: 1}, entity.Handle{Index: 2})
	candidates := GenerateCandidates(a, b)
	mf.Update(a, b, candidates, identityMix, mgl64.Vec3{0, 1, 0})
	if len(mf.Points) == 0 {
		t.Fatalf("expected initial insertion to succeed")
	}
	firstLifetime := mf.Points[0].Lifetime

	// Step again with a slightly moved body -- the same candidate should
	// merge into the existing point rather than create a second one.
	b.Transform.Position = mgl64.Vec3{1.49, 0, 0}
	candidates = GenerateCandidates(a, b)
	mf.Update(a, b, candidates, identityMix, mgl64.Vec3{0, 1, 0})

	if len(mf.Points) != 1 {
		t.Fatalf("expected merge to keep a single point, got %d", len(mf.Points))
	}
	if mf.Points[0].Lifetime <= firstLifetime {
		t.Fatalf("expected lifetime to increase after merge, had %d now %d", firstLifetime, mf.Points[0].Lifetime)
	}
}

func TestManifoldMixesMaterialOncePerNewPoint(t *testing.T) {
	a := sphereBody(mgl64.Vec3{0, 0, 0}, 1)
	a.Material = body.Material{Friction: 0.5, Restitution: 0.5}
	b := sphereBody(mgl64.Vec3{1.5, 0, 0}, 1)
	b.Material = body.Material{Friction: 0.4, Restitution: 0.2}

	mf := NewManifold(entity.Handle{Index: 1}, entity.Handle{Index: 2})
	candidates := GenerateCandidates(a, b)
	mf.Update(a, b, candidates, identityMix, mgl64.Vec3{0, 1, 0})

	if len(mf.Points) == 0 {
		t.Fatalf("expected a point to be created")
	}
	if mf.Points[0].Material.Friction != 0.2 {
		t.Fatalf("expected mixed friction 0.2, got %f", mf.Points[0].Material.Friction)
	}
}

func TestBestReplacementIndexPrefersDroppingShallowestOrFlattest(t *testing.T) {
	existing := []Point{
		{LocalA: mgl64.Vec3{1, 0, 0}, Distance: -0.01},
		{LocalA: mgl64.Vec3{-1, 0, 0}, Distance: -0.01},
		{LocalA: mgl64.Vec3{0, 0, 1}, Distance: -0.01},
		{LocalA: mgl64.Vec3{0, 0, -1}, Distance: -0.01},
	}
	deepCandidate := Point{LocalA: mgl64.Vec3{0, 0, 0}, Distance: -0.5}

	idx := bestReplacementIndex(existing, deepCandidate)
	if idx < 0 {
		t.Fatalf("expected a much deeper candidate to replace one of the shallow points")
	}
}
