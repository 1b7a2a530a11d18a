package body

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestSphereMassAndInertia(t *testing.T) {
	s := &Sphere{Radius: 2}
	mass := s.ComputeMass(1.0)
	want := (4.0 / 3.0) * math.Pi * 8
	if !approxEqual(mass, want, 1e-9) {
		t.Fatalf("expected mass %f, got %f", want, mass)
	}

	inertia := s.ComputeInertia(mass)
	wantI := 0.4 * mass * 4
	if !approxEqual(inertia[0], wantI, 1e-6) {
		t.Fatalf("expected Ixx %f, got %f", wantI, inertia[0])
	}
}

func TestSphereSupportLiesOnSurface(t *testing.T) {
	s := &Sphere{Radius: 3}
	p := s.Support(mgl64.Vec3{1, 0, 0})
	if !approxEqual(p.Len(), 3, 1e-9) {
		t.Fatalf("support point should lie on the sphere surface, got len %f", p.Len())
	}
}

func TestBoxAABBMatchesHalfExtentsWhenUnrotated(t *testing.T) {
	b := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
	tr := NewTransform()
	aabb := b.ComputeAABB(tr)
	if !approxEqual(aabb.Min.X(), -1, 1e-9) || !approxEqual(aabb.Max.X(), 1, 1e-9) {
		t.Fatalf("unrotated box AABB should match half extents, got %+v", aabb)
	}
}

func TestBoxSupportPicksExtremeCorner(t *testing.T) {
	b := &Box{HalfExtents: mgl64.Vec3{1, 2, 3}}
	p := b.Support(mgl64.Vec3{1, 1, 1})
	if p != (mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("expected corner (1,2,3), got %+v", p)
	}
}

func TestCompoundAABBUnionsChildren(t *testing.T) {
	c := &Compound{
		Children: []CompoundChild{
			{Shape: &Sphere{Radius: 1}, Transform: Transform{Position: mgl64.Vec3{-5, 0, 0}, Rotation: mgl64.QuatIdent(), InverseRotation: mgl64.QuatIdent()}},
			{Shape: &Sphere{Radius: 1}, Transform: Transform{Position: mgl64.Vec3{5, 0, 0}, Rotation: mgl64.QuatIdent(), InverseRotation: mgl64.QuatIdent()}},
		},
	}
	aabb := c.ComputeAABB(NewTransform())
	if !approxEqual(aabb.Min.X(), -6, 1e-9) || !approxEqual(aabb.Max.X(), 6, 1e-9) {
		t.Fatalf("expected compound AABB spanning both children, got %+v", aabb)
	}
}

func TestCompoundChildIndexAtPicksClosestChild(t *testing.T) {
	c := &Compound{
		Children: []CompoundChild{
			{Shape: &Sphere{Radius: 1}, Transform: Transform{Position: mgl64.Vec3{-5, 0, 0}, Rotation: mgl64.QuatIdent(), InverseRotation: mgl64.QuatIdent()}},
			{Shape: &Sphere{Radius: 1}, Transform: Transform{Position: mgl64.Vec3{5, 0, 0}, Rotation: mgl64.QuatIdent(), InverseRotation: mgl64.QuatIdent()}},
		},
	}
	idx := c.ChildIndexAt(mgl64.Vec3{1, 0, 0})
	if idx != 1 {
		t.Fatalf("expected child 1 (positive-x side) to be the extreme, got %d", idx)
	}
}

func TestConvexHullSupportReturnsFarthestVertex(t *testing.T) {
	h := &ConvexHull{Vertices: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
	p := h.Support(mgl64.Vec3{1, 0, 0})
	if p != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("expected vertex (1,0,0), got %+v", p)
	}
}
