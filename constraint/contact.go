package constraint

import (
	"math"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/narrowphase"

	"github.com/go-gl/mathgl/mgl64"
)

// RestitutionVelocityThreshold gates the dedicated restitution pass
// (spec.md §4.6): approach velocities below this are treated as
// resting contact, not a bounce, so a stack of boxes doesn't jitter
// from restitution being folded into every micro-correction.
const RestitutionVelocityThreshold = 0.5

// PositionRateFactor and PositionSlop are the position solver's
// analytic split-impulse parameters (spec.md §4.7): only a fraction
// of the penetration is corrected per position iteration, and error
// below the slop is left alone.
const (
	PositionRateFactor = 0.2
	PositionSlop       = LinearSlop
)

// ContactConstraint is the solver's view of one persistent manifold,
// rebuilt fresh every step (never itself persisted, spec.md §4.4) from
// the manifold's points. DedicatedRestitution mirrors spec.md §4.6's
// switch: when true the normal row's rhs omits the restitution term
// because a separate outer pass (solver package) applies it instead.
type ContactConstraint struct {
	BodyA, BodyB         *body.RigidBody
	Manifold             *narrowphase.Manifold
	DedicatedRestitution bool

	normalRows []*Row
}

func (c *ContactConstraint) Prepare(dt float64) []Row {
	points := c.Manifold.Points
	if len(points) == 0 {
		return nil
	}

	a, b := c.BodyA, c.BodyB
	// Capacity is fixed up front at the maximum a point can contribute
	// (normal + 2 friction + 2 rolling + 1 spin) so the repeated
	// append calls below never reallocate the backing array — rows
	// taken earlier in the loop (FrictionOf, normalRows) hold direct
	// pointers into this slice and would dangle across a reallocation.
	rows := make([]Row, 0, len(points)*6)
	c.normalRows = make([]*Row, len(points))

	for i := range points {
		p := &points[i]
		worldA := a.Transform.TransformPoint(p.LocalA)
		worldB := b.Transform.TransformPoint(p.LocalB)
		normal := p.Normal

		rA := worldA.Sub(a.Transform.Position)
		rB := worldB.Sub(b.Transform.Position)

		jAngA := rA.Cross(normal).Mul(-1)
		jAngB := rB.Cross(normal)

		effMass := jacobianEffectiveMass(normal.Mul(-1), jAngA, normal, jAngB, a, b)

		penetration := -p.Distance
		if penetration < 0 {
			penetration = 0
		}

		closingSpeed := -jacobianVelocity(normal.Mul(-1), jAngA, normal, jAngB, a, b)

		rhs := 0.0
		switch {
		case p.Material.NormalStiffness > 0:
			// Soft contact: the row becomes a spring-damper instead of
			// a Baumgarte correction, per spec.md §4.5's "stiffness/
			// damping lowered to give a spring-damper when either
			// material is soft".
			springForce := p.Material.NormalStiffness*penetration - p.Material.NormalDamping*closingSpeed
			rhs = springForce * dt * effMass
		case penetration > PositionSlop:
			rhs = DefaultERP * (penetration - PositionSlop) / dt
		}

		restitutionBias := 0.0
		if closingSpeed > RestitutionVelocityThreshold {
			if c.DedicatedRestitution {
				restitutionBias = p.Material.Restitution * closingSpeed
			} else {
				rhs += p.Material.Restitution * closingSpeed
			}
		}

		normalRow := Row{
			JLinA: normal.Mul(-1), JAngA: jAngA,
			JLinB: normal, JAngB: jAngB,
			EffectiveMass:   effMass,
			RHS:             rhs,
			RestitutionBias: restitutionBias,
			Lower:           0,
			Upper:           infinity,
			Persist:         &p.NormalImpulse,
		}
		rows = append(rows, normalRow)
		normalRowIdx := len(rows) - 1
		c.normalRows[i] = &rows[normalRowIdx]

		t1, t2 := tangentBasis(normal)
		tan1 := makeTangentRow(t1, rA, rB, a, b, p.Material.Friction, &p.TangentImpulse[0])
		tan2 := makeTangentRow(t2, rA, rB, a, b, p.Material.Friction, &p.TangentImpulse[1])
		rows = append(rows, tan1, tan2)
		n := len(rows)
		rows[n-2].FrictionOf = &rows[normalRowIdx]
		rows[n-1].FrictionOf = &rows[normalRowIdx]
		rows[n-2].PairWith = &rows[n-1]
		rows[n-1].PairWith = &rows[n-2]

		if p.Material.RollingFriction > 0 {
			roll1 := makeRollingRow(t1, a, b, p.Material.RollingFriction, &p.RollingImpulse[0])
			roll2 := makeRollingRow(t2, a, b, p.Material.RollingFriction, &p.RollingImpulse[1])
			rows = append(rows, roll1, roll2)
			m := len(rows)
			rows[m-2].FrictionOf = &rows[normalRowIdx]
			rows[m-1].FrictionOf = &rows[normalRowIdx]
		}

		if p.Material.SpinFriction > 0 {
			spin := makeRollingRow(normal, a, b, p.Material.SpinFriction, &p.SpinImpulse)
			rows = append(rows, spin)
			rows[len(rows)-1].FrictionOf = &rows[normalRowIdx]
		}
	}

	for i := range rows {
		rows[i].BodyA, rows[i].BodyB = a, b
	}
	return rows
}

func jacobianVelocity(jLinA, jAngA, jLinB, jAngB mgl64.Vec3, a, b *body.RigidBody) float64 {
	return jLinA.Dot(a.LinearVelocity) + jAngA.Dot(a.AngularVelocity) +
		jLinB.Dot(b.LinearVelocity) + jAngB.Dot(b.AngularVelocity)
}

func makeTangentRow(dir, rA, rB mgl64.Vec3, a, b *body.RigidBody, friction float64, persist *float64) Row {
	jAngA := rA.Cross(dir).Mul(-1)
	jAngB := rB.Cross(dir)
	effMass := jacobianEffectiveMass(dir.Mul(-1), jAngA, dir, jAngB, a, b)
	return Row{
		JLinA: dir.Mul(-1), JAngA: jAngA,
		JLinB: dir, JAngB: jAngB,
		EffectiveMass: effMass,
		RHS:           0,
		FrictionCoeff: friction,
		Persist:       persist,
	}
}

func makeRollingRow(axis mgl64.Vec3, a, b *body.RigidBody, coeff float64, persist *float64) Row {
	effMass := jacobianEffectiveMass(mgl64.Vec3{}, axis.Mul(-1), mgl64.Vec3{}, axis, a, b)
	return Row{
		JAngA: axis.Mul(-1), JAngB: axis,
		EffectiveMass: effMass,
		FrictionCoeff: coeff,
		Persist:       persist,
	}
}

func tangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	t1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		t1 = mgl64.Vec3{0, 1, 0}
	}
	t1 = t1.Sub(normal.Mul(t1.Dot(normal))).Normalize()
	t2 := normal.Cross(t1).Normalize()
	return t1, t2
}

// PositionCorrect applies the analytic split-impulse position
// correction of spec.md §4.7 directly, independent of any velocity
// row: each point pushes the bodies apart by a fraction of its
// penetration past PositionSlop, and PositionCorrect never runs past
// the cut-off, matching the teacher's direct-mutation style from
// actor.Transform correction in the original contact.go.
func (c *ContactConstraint) PositionCorrect(dt float64) {
	points := c.Manifold.Points
	if len(points) == 0 {
		return
	}
	a, b := c.BodyA, c.BodyB

	for i := range points {
		p := &points[i]
		if p.Material.NormalStiffness > 0 {
			continue // soft contacts correct entirely through the velocity row
		}
		penetration := -p.Distance
		if penetration <= PositionSlop {
			continue
		}

		worldA := a.Transform.TransformPoint(p.LocalA)
		worldB := b.Transform.TransformPoint(p.LocalB)
		rA := worldA.Sub(a.Transform.Position)
		rB := worldB.Sub(b.Transform.Position)
		normal := p.Normal

		jAngA := rA.Cross(normal).Mul(-1)
		jAngB := rB.Cross(normal)
		effMass := jacobianEffectiveMass(normal.Mul(-1), jAngA, normal, jAngB, a, b)
		if effMass <= 0 {
			continue
		}

		correction := PositionRateFactor * (penetration - PositionSlop)
		lambda := correction * effMass

		impulse := normal.Mul(lambda)
		if a.Kind == body.Dynamic {
			a.Transform.Position = a.Transform.Position.Sub(impulse.Mul(a.InverseMass))
			applyAngularPositionDelta(a, rA.Cross(impulse.Mul(-1)))
		}
		if b.Kind == body.Dynamic {
			b.Transform.Position = b.Transform.Position.Add(impulse.Mul(b.InverseMass))
			applyAngularPositionDelta(b, rB.Cross(impulse))
		}
	}
}

func applyAngularPositionDelta(rb *body.RigidBody, torque mgl64.Vec3) {
	delta := rb.WorldInverseInertia().Mul3x1(torque)
	if delta.Len() < 1e-10 {
		return
	}
	q := mgl64.Quat{W: 1, V: delta.Mul(0.5)}
	rb.Transform.Rotation = q.Mul(rb.Transform.Rotation).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()
}
