package constraint

import (
	"math"

	"github.com/quillphysics/quill/body"

	"github.com/go-gl/mathgl/mgl64"
)

// PointToPoint pins a local anchor on each body to coincide in world
// space, three rows (one per world axis), the base building block the
// hinge and double-wishbone joints reuse for their linear part.
type PointToPoint struct {
	BodyA, BodyB *body.RigidBody
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3
	ERP          float64

	impulse [3]float64
}

func NewPointToPoint(a, b *body.RigidBody, anchorA, anchorB mgl64.Vec3) *PointToPoint {
	return &PointToPoint{BodyA: a, BodyB: b, LocalAnchorA: anchorA, LocalAnchorB: anchorB, ERP: DefaultERP}
}

func (j *PointToPoint) Prepare(dt float64) []Row {
	a, b := j.BodyA, j.BodyB
	worldA := a.Transform.TransformPoint(j.LocalAnchorA)
	worldB := b.Transform.TransformPoint(j.LocalAnchorB)
	rA := worldA.Sub(a.Transform.Position)
	rB := worldB.Sub(b.Transform.Position)
	err := worldB.Sub(worldA)

	axes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	rows := make([]Row, 3)
	for i, axis := range axes {
		jAngA := rA.Cross(axis).Mul(-1)
		jAngB := rB.Cross(axis)
		rows[i] = Row{
			BodyA: a, BodyB: b,
			JLinA: axis.Mul(-1), JAngA: jAngA,
			JLinB: axis, JAngB: jAngB,
			EffectiveMass: jacobianEffectiveMass(axis.Mul(-1), jAngA, axis, jAngB, a, b),
			RHS:           j.ERP * err.Dot(axis) / dt,
			Lower:         -infinity, Upper: infinity,
			Persist: &j.impulse[i],
		}
	}
	return rows
}

func (j *PointToPoint) PositionCorrect(dt float64) {
	a, b := j.BodyA, j.BodyB
	worldA := a.Transform.TransformPoint(j.LocalAnchorA)
	worldB := b.Transform.TransformPoint(j.LocalAnchorB)
	err := worldB.Sub(worldA)
	if err.Len() < LinearSlop {
		return
	}

	rA := worldA.Sub(a.Transform.Position)
	rB := worldB.Sub(b.Transform.Position)
	k := a.InverseMass + b.InverseMass
	if k < 1e-10 {
		return
	}
	correction := err.Mul(PositionRateFactor / k)

	if a.Kind == body.Dynamic {
		a.Transform.Position = a.Transform.Position.Add(correction.Mul(a.InverseMass))
		applyAngularPositionDelta(a, rA.Cross(correction).Mul(a.InverseMass))
	}
	if b.Kind == body.Dynamic {
		b.Transform.Position = b.Transform.Position.Sub(correction.Mul(b.InverseMass))
		applyAngularPositionDelta(b, rB.Cross(correction).Mul(-b.InverseMass))
	}
}

// Distance keeps two anchors a fixed distance apart (rigid) or, when
// Stiffness > 0, springs toward that distance (soft distance /
// spring-damper, spec.md §4.4's two related joint kinds collapse into
// one type parameterized by stiffness).
type Distance struct {
	BodyA, BodyB *body.RigidBody
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3
	RestLength   float64

	// Stiffness/Damping > 0 make this a soft distance / spring-damper
	// joint; both zero means rigid distance.
	Stiffness float64
	Damping   float64

	impulse float64
}

func (j *Distance) axisAndLength() (mgl64.Vec3, float64, mgl64.Vec3, mgl64.Vec3) {
	a, b := j.BodyA, j.BodyB
	worldA := a.Transform.TransformPoint(j.LocalAnchorA)
	worldB := b.Transform.TransformPoint(j.LocalAnchorB)
	delta := worldB.Sub(worldA)
	length := delta.Len()
	axis := mgl64.Vec3{1, 0, 0}
	if length > 1e-9 {
		axis = delta.Mul(1 / length)
	}
	return axis, length, worldA, worldB
}

func (j *Distance) Prepare(dt float64) []Row {
	a, b := j.BodyA, j.BodyB
	axis, length, worldA, worldB := j.axisAndLength()
	rA := worldA.Sub(a.Transform.Position)
	rB := worldB.Sub(b.Transform.Position)

	jAngA := rA.Cross(axis).Mul(-1)
	jAngB := rB.Cross(axis)
	effMass := jacobianEffectiveMass(axis.Mul(-1), jAngA, axis, jAngB, a, b)

	err := length - j.RestLength
	rhs := DefaultERP * err / dt
	lower, upper := -infinity, infinity

	if j.Stiffness > 0 {
		closingSpeed := jacobianVelocity(axis.Mul(-1), jAngA, axis, jAngB, a, b)
		springForce := -j.Stiffness*err - j.Damping*closingSpeed
		rhs = springForce * dt * effMass
	}

	return []Row{{
		BodyA: a, BodyB: b,
		JLinA: axis.Mul(-1), JAngA: jAngA,
		JLinB: axis, JAngB: jAngB,
		EffectiveMass: effMass,
		RHS:           rhs,
		Lower:         lower, Upper: upper,
		Persist: &j.impulse,
	}}
}

func (j *Distance) PositionCorrect(dt float64) {
	if j.Stiffness > 0 {
		return // soft joints correct entirely through the velocity row
	}
	a, b := j.BodyA, j.BodyB
	axis, length, worldA, worldB := j.axisAndLength()
	err := length - j.RestLength
	if math.Abs(err) < LinearSlop {
		return
	}

	k := a.InverseMass + b.InverseMass
	if k < 1e-10 {
		return
	}
	correction := axis.Mul(PositionRateFactor * err / k)

	rA := worldA.Sub(a.Transform.Position)
	rB := worldB.Sub(b.Transform.Position)
	if a.Kind == body.Dynamic {
		a.Transform.Position = a.Transform.Position.Add(correction.Mul(a.InverseMass))
		applyAngularPositionDelta(a, rA.Cross(correction).Mul(a.InverseMass))
	}
	if b.Kind == body.Dynamic {
		b.Transform.Position = b.Transform.Position.Sub(correction.Mul(b.InverseMass))
		applyAngularPositionDelta(b, rB.Cross(correction).Mul(-b.InverseMass))
	}
}

// GravityGenerator is not itself a row-producing constraint: it is the
// force-generator joint kind spec.md §4.4 lists, applied directly to a
// body's velocity each step rather than clamped through the PGS loop.
type GravityGenerator struct {
	Body         *body.RigidBody
	Acceleration mgl64.Vec3
}

func (g *GravityGenerator) ApplyForce(dt float64) {
	if g.Body.Kind != body.Dynamic {
		return
	}
	g.Body.LinearVelocity = g.Body.LinearVelocity.Add(g.Acceleration.Mul(dt))
}
