package constraint

import (
	"math"

	"github.com/quillphysics/quill/body"

	"github.com/go-gl/mathgl/mgl64"
)

// Hinge locks the anchors together (reusing PointToPoint's three
// rows) and additionally locks two of the three relative-rotation
// axes, leaving rotation free only about LocalAxisA/LocalAxisB —
// spec.md §4.4's "hinge (axis + swing limits)".
type Hinge struct {
	point *PointToPoint

	BodyA, BodyB *body.RigidBody
	LocalAxisA   mgl64.Vec3
	LocalAxisB   mgl64.Vec3

	LowerAngle, UpperAngle float64
	HasLimit               bool

	angularImpulse [2]float64
	limitImpulse   float64
}

func NewHinge(a, b *body.RigidBody, anchorA, anchorB, axisA, axisB mgl64.Vec3) *Hinge {
	return &Hinge{
		point:      NewPointToPoint(a, b, anchorA, anchorB),
		BodyA:      a, BodyB: b,
		LocalAxisA: axisA.Normalize(), LocalAxisB: axisB.Normalize(),
	}
}

func (h *Hinge) worldAxes() (mgl64.Vec3, mgl64.Vec3) {
	return h.BodyA.Transform.Rotation.Rotate(h.LocalAxisA), h.BodyB.Transform.Rotation.Rotate(h.LocalAxisB)
}

func (h *Hinge) Prepare(dt float64) []Row {
	rows := h.point.Prepare(dt)

	worldAxisA, worldAxisB := h.worldAxes()
	perp1, perp2 := tangentBasis(worldAxisA)

	a, b := h.BodyA, h.BodyB
	swingError := worldAxisB.Cross(worldAxisA)

	for i, perp := range [2]mgl64.Vec3{perp1, perp2} {
		effMass := jacobianEffectiveMass(mgl64.Vec3{}, perp.Mul(-1), mgl64.Vec3{}, perp, a, b)
		rows = append(rows, Row{
			JAngA: perp.Mul(-1), JAngB: perp,
			EffectiveMass: effMass,
			RHS:           DefaultERP * swingError.Dot(perp) / dt,
			Lower:         -infinity, Upper: infinity,
			Persist: &h.angularImpulse[i],
		})
	}

	if h.HasLimit {
		angle := hingeAngle(worldAxisA, perp1, perp2, worldAxisB)
		lower, upper := -infinity, infinity
		rhs := 0.0
		if angle < h.LowerAngle {
			rhs = DefaultERP * (h.LowerAngle - angle) / dt
			lower = 0
		} else if angle > h.UpperAngle {
			rhs = DefaultERP * (h.UpperAngle - angle) / dt
			upper = 0
		} else {
			lower, upper = 0, 0
		}
		effMass := jacobianEffectiveMass(mgl64.Vec3{}, worldAxisA.Mul(-1), mgl64.Vec3{}, worldAxisA, a, b)
		rows = append(rows, Row{
			JAngA: worldAxisA.Mul(-1), JAngB: worldAxisA,
			EffectiveMass: effMass,
			RHS:           rhs,
			Lower:         lower, Upper: upper,
			Persist: &h.limitImpulse,
		})
	}

	for i := range rows {
		rows[i].BodyA, rows[i].BodyB = a, b
	}
	return rows
}

// hingeAngle measures the angle swept about the hinge axis between
// the two bodies' reference perpendiculars.
func hingeAngle(axis, perp1, perp2, otherAxisProjected mgl64.Vec3) float64 {
	x := otherAxisProjected.Dot(perp1)
	y := otherAxisProjected.Dot(perp2)
	return math.Atan2(y, x)
}

func (h *Hinge) PositionCorrect(dt float64) {
	h.point.PositionCorrect(dt)
}

// ConstantVelocity couples the two bodies' angular velocity about a
// shared world axis to a fixed ratio, spec.md §4.4's constant-velocity
// joint (drive shafts, geared spin couplings before the dedicated
// TripleSpinGear case).
type ConstantVelocity struct {
	BodyA, BodyB *body.RigidBody
	Axis         mgl64.Vec3
	Ratio        float64

	impulse float64
}

func (c *ConstantVelocity) Prepare(dt float64) []Row {
	a, b := c.BodyA, c.BodyB
	axis := c.Axis.Normalize()

	effMass := jacobianEffectiveMass(mgl64.Vec3{}, axis.Mul(-c.Ratio), mgl64.Vec3{}, axis, a, b)
	return []Row{{
		BodyA: a, BodyB: b,
		JAngA: axis.Mul(-c.Ratio), JAngB: axis,
		EffectiveMass: effMass,
		Lower:         -infinity, Upper: infinity,
		Persist: &c.impulse,
	}}
}

func (c *ConstantVelocity) PositionCorrect(dt float64) {}

// ConeLimit restricts the angle between two body-fixed axes to a
// maximum half-angle, a unilateral row that only engages once the
// limit is exceeded (spec.md §4.4 "cone limit").
type ConeLimit struct {
	BodyA, BodyB *body.RigidBody
	LocalAxisA   mgl64.Vec3
	LocalAxisB   mgl64.Vec3
	MaxAngle     float64

	impulse float64
}

func (c *ConeLimit) Prepare(dt float64) []Row {
	a, b := c.BodyA, c.BodyB
	worldA := a.Transform.Rotation.Rotate(c.LocalAxisA)
	worldB := b.Transform.Rotation.Rotate(c.LocalAxisB)

	cosAngle := clamp(worldA.Dot(worldB), -1, 1)
	angle := math.Acos(cosAngle)
	if angle <= c.MaxAngle {
		return nil
	}

	hinge := worldA.Cross(worldB)
	if hinge.Len() < 1e-9 {
		return nil
	}
	hinge = hinge.Normalize()

	effMass := jacobianEffectiveMass(mgl64.Vec3{}, hinge.Mul(-1), mgl64.Vec3{}, hinge, a, b)
	return []Row{{
		BodyA: a, BodyB: b,
		JAngA: hinge.Mul(-1), JAngB: hinge,
		EffectiveMass: effMass,
		RHS:           DefaultERP * (angle - c.MaxAngle) / dt,
		Lower:         0, Upper: infinity,
		Persist: &c.impulse,
	}}
}

func (c *ConeLimit) PositionCorrect(dt float64) {}

// Generic6DoF locks an arbitrary subset of the six relative DoFs
// (three linear, three angular) while leaving the rest free, the most
// general joint kind spec.md §4.4 lists; Hinge and PointToPoint are
// special cases expressible through this type, kept separate because
// they are common enough to warrant their own zero-configuration
// constructors.
type Generic6DoF struct {
	BodyA, BodyB *body.RigidBody
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3

	LockLinear  [3]bool
	LockAngular [3]bool

	linearImpulse  [3]float64
	angularImpulse [3]float64
}

func (g *Generic6DoF) Prepare(dt float64) []Row {
	a, b := g.BodyA, g.BodyB
	worldA := a.Transform.TransformPoint(g.LocalAnchorA)
	worldB := b.Transform.TransformPoint(g.LocalAnchorB)
	rA := worldA.Sub(a.Transform.Position)
	rB := worldB.Sub(b.Transform.Position)
	linErr := worldB.Sub(worldA)

	axes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	var rows []Row

	for i, axis := range axes {
		if !g.LockLinear[i] {
			continue
		}
		jAngA := rA.Cross(axis).Mul(-1)
		jAngB := rB.Cross(axis)
		rows = append(rows, Row{
			JLinA: axis.Mul(-1), JAngA: jAngA,
			JLinB: axis, JAngB: jAngB,
			EffectiveMass: jacobianEffectiveMass(axis.Mul(-1), jAngA, axis, jAngB, a, b),
			RHS:           DefaultERP * linErr.Dot(axis) / dt,
			Lower:         -infinity, Upper: infinity,
			Persist: &g.linearImpulse[i],
		})
	}

	relRot := a.Transform.InverseRotation.Mul(b.Transform.Rotation)
	angErr := relRot.V.Mul(2)

	for i, axis := range axes {
		if !g.LockAngular[i] {
			continue
		}
		worldAxis := a.Transform.Rotation.Rotate(axis)
		rows = append(rows, Row{
			JAngA: worldAxis.Mul(-1), JAngB: worldAxis,
			EffectiveMass: jacobianEffectiveMass(mgl64.Vec3{}, worldAxis.Mul(-1), mgl64.Vec3{}, worldAxis, a, b),
			RHS:           DefaultERP * angErr.Dot(axis) / dt,
			Lower:         -infinity, Upper: infinity,
			Persist: &g.angularImpulse[i],
		})
	}

	for i := range rows {
		rows[i].BodyA, rows[i].BodyB = a, b
	}
	return rows
}

func (g *Generic6DoF) PositionCorrect(dt float64) {
	a, b := g.BodyA, g.BodyB
	worldA := a.Transform.TransformPoint(g.LocalAnchorA)
	worldB := b.Transform.TransformPoint(g.LocalAnchorB)
	linErr := worldB.Sub(worldA)

	anyLocked := false
	for _, locked := range g.LockLinear {
		anyLocked = anyLocked || locked
	}
	if !anyLocked || linErr.Len() < LinearSlop {
		return
	}

	k := a.InverseMass + b.InverseMass
	if k < 1e-10 {
		return
	}
	correction := linErr.Mul(PositionRateFactor / k)
	if a.Kind == body.Dynamic {
		a.Transform.Position = a.Transform.Position.Add(correction.Mul(a.InverseMass))
	}
	if b.Kind == body.Dynamic {
		b.Transform.Position = b.Transform.Position.Sub(correction.Mul(b.InverseMass))
	}
}
