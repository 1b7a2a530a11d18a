package solver

import (
	"testing"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/constraint"
	"github.com/quillphysics/quill/entity"
	"github.com/quillphysics/quill/narrowphase"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPositionSolveSeparatesPenetratingBodies(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0.4, 0}, mgl64.Vec3{})
	b := staticPlane()

	mf := narrowphase.NewManifold(entity.Handle{Index: 1}, entity.Handle{Index: 2})
	mf.Points = []narrowphase.Point{{
		LocalA:   mgl64.Vec3{0, -0.5, 0},
		LocalB:   mgl64.Vec3{0, 0, 0},
		Normal:   mgl64.Vec3{0, -1, 0},
		Distance: -0.1,
		Material: body.Material{Friction: 0.5},
	}}
	cc := &constraint.ContactConstraint{BodyA: a, BodyB: b, Manifold: mf}

	startY := a.Transform.Position.Y()
	p := NewPosition()
	p.Solve(1.0/60.0, []constraint.Constraint{cc}, nil)

	if a.Transform.Position.Y() <= startY {
		t.Fatalf("expected the position pass to separate the bodies, start=%f end=%f", startY, a.Transform.Position.Y())
	}
}

func TestPositionSolveExitsEarlyWhenMaxPenetrationReporterSaysDone(t *testing.T) {
	calls := 0
	reporter := func() float64 {
		calls++
		return 0
	}

	p := NewPosition()
	p.Solve(1.0/60.0, nil, reporter)

	if calls != 1 {
		t.Fatalf("expected the position pass to exit after the first iteration once penetration is below cutoff, got %d calls", calls)
	}
}

func TestPositionSolveRunsFixedIterationsWithoutReporter(t *testing.T) {
	callCount := 0
	counting := countingConstraint{fn: func() { callCount++ }}

	p := &Position{Iterations: 3}
	p.Solve(1.0/60.0, []constraint.Constraint{counting}, nil)

	if callCount != 3 {
		t.Fatalf("expected exactly 3 position-correct calls with no early-exit reporter, got %d", callCount)
	}
}

type countingConstraint struct {
	fn func()
}

func (c countingConstraint) Prepare(dt float64) []constraint.Row { return nil }
func (c countingConstraint) PositionCorrect(dt float64)          { c.fn() }
