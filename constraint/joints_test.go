package constraint

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPointToPointRhsReflectsAnchorSeparation(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0, 0})
	b := dynamicSphere(mgl64.Vec3{0.2, 0, 0})

	j := NewPointToPoint(a, b, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 0})
	rows := j.Prepare(1.0 / 60.0)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows for point-to-point, got %d", len(rows))
	}

	// X axis row should carry the bulk of the correction since the
	// anchors are separated along X.
	if math.Abs(rows[0].RHS) < math.Abs(rows[1].RHS) {
		t.Fatalf("expected X-axis row to carry more correction than Y, got x=%f y=%f", rows[0].RHS, rows[1].RHS)
	}
}

func TestDistanceJointRigidProducesSingleRow(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0, 0})
	b := dynamicSphere(mgl64.Vec3{2, 0, 0})

	j := &Distance{BodyA: a, BodyB: b, RestLength: 1.0}
	rows := j.Prepare(1.0 / 60.0)
	if len(rows) != 1 {
		t.Fatalf("expected a single row for a rigid distance joint, got %d", len(rows))
	}
	if rows[0].RHS <= 0 {
		t.Fatalf("expected positive rhs since current length (2) exceeds rest length (1), got %f", rows[0].RHS)
	}
}

func TestDistanceJointSoftSkipsPositionCorrect(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0, 0})
	b := dynamicSphere(mgl64.Vec3{2, 0, 0})

	j := &Distance{BodyA: a, BodyB: b, RestLength: 1.0, Stiffness: 100, Damping: 5}
	startY := a.Transform.Position.Y()
	j.PositionCorrect(1.0 / 60.0)
	if a.Transform.Position.Y() != startY {
		t.Fatalf("expected a soft distance joint to never use position correction")
	}
}

func TestGravityGeneratorOnlyAffectsDynamicBodies(t *testing.T) {
	dyn := dynamicSphere(mgl64.Vec3{0, 10, 0})
	stat := staticPlane()

	g1 := &GravityGenerator{Body: dyn, Acceleration: mgl64.Vec3{0, -9.81, 0}}
	g1.ApplyForce(1.0)
	if dyn.LinearVelocity.Y() >= 0 {
		t.Fatalf("expected gravity to push dynamic body's velocity negative, got %f", dyn.LinearVelocity.Y())
	}

	g2 := &GravityGenerator{Body: stat, Acceleration: mgl64.Vec3{0, -9.81, 0}}
	g2.ApplyForce(1.0)
	if stat.LinearVelocity.Y() != 0 {
		t.Fatalf("expected gravity to never move a static body, got %f", stat.LinearVelocity.Y())
	}
}

func TestConeLimitProducesNoRowWithinLimit(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0, 0})
	b := dynamicSphere(mgl64.Vec3{1, 0, 0})

	j := &ConeLimit{BodyA: a, BodyB: b, LocalAxisA: mgl64.Vec3{0, 1, 0}, LocalAxisB: mgl64.Vec3{0, 1, 0}, MaxAngle: 0.5}
	rows := j.Prepare(1.0 / 60.0)
	if rows != nil {
		t.Fatalf("expected no row when both axes are aligned, got %v", rows)
	}
}

func TestConeLimitProducesRowBeyondLimit(t *testing.T) {
	a := dynamicSphere(mgl64.Vec3{0, 0, 0})
	b := dynamicSphere(mgl64.Vec3{1, 0, 0})
	b.Transform.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0})

	j := &ConeLimit{BodyA: a, BodyB: b, LocalAxisA: mgl64.Vec3{0, 1, 0}, LocalAxisB: mgl64.Vec3{0, 1, 0}, MaxAngle: 0.1}
	rows := j.Prepare(1.0 / 60.0)
	if len(rows) != 1 {
		t.Fatalf("expected one row once the cone limit is exceeded, got %d", len(rows))
	}
	if rows[0].Lower != 0 {
		t.Fatalf("expected unilateral clamp on cone limit row")
	}
}
