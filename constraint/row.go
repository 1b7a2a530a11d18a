// Package constraint builds the rows the solver iterates: one type per
// joint kind plus the contact constraint, each implementing Constraint
// so the solver never needs a type switch to decide how to prepare or
// position-correct a pair.
package constraint

import (
	"github.com/quillphysics/quill/body"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultERP is the Baumgarte error-reduction factor applied to a
// row's position error when folding it into the velocity rhs. The
// position pass corrects the same error through each constraint's
// PositionCorrect, scaled by the separate constant PositionRateFactor
// (contact.go), which has the same value.
const DefaultERP = 0.2

// LinearSlop is the penetration/error allowance below which a row
// stops pushing, the Box2D b2_linearSlop idea: without it, resting
// contacts jitter trying to correct sub-millimeter error every step.
const LinearSlop = 0.0005

// Row is one scalar constraint equation handed to the velocity solver.
// Jacobian columns map a candidate velocity change to the row's
// constraint-space velocity; EffectiveMass, RHS, Lower/Upper and
// Impulse are exactly spec.md §4.4's row fields.
type Row struct {
	BodyA, BodyB *body.RigidBody

	JLinA, JAngA, JLinB, JAngB mgl64.Vec3

	EffectiveMass float64
	RHS           float64

	// RestitutionBias is the target approach-velocity reversal a
	// dedicated restitution pass (solver package) solves for ahead of
	// the main sweeps, separate from RHS so the main sweeps never
	// re-apply it once the dedicated pass has converged, per spec.md
	// §4.6's "dedicated restitution pass" note. Zero unless the owning
	// contact constraint has DedicatedRestitution set and this row is a
	// bouncing normal row.
	RestitutionBias float64

	Lower, Upper float64
	Impulse      float64

	// Persist, when set, is where the solver reads the previous step's
	// impulse for warm starting and writes the converged impulse back
	// to for the next step, per spec.md §4.6's warm-starting rule.
	Persist *float64

	// FrictionOf marks this row as a friction row whose clamp is
	// re-derived every iteration from FrictionOf's current impulse
	// (the friction-circle coupling, spec.md §4.5); PairWith names the
	// other tangent row solved jointly with this one rather than
	// independently, so their combined magnitude respects the circle.
	FrictionOf    *Row
	FrictionCoeff float64
	PairWith      *Row

	// SpinA/SpinB mark JAngA/JAngB as acting on the body's scalar spin
	// DoF (body.Spin.SpinVelocity) instead of full angular velocity,
	// for the tire joint family (§GLOSSARY "spin").
	SpinA, SpinB bool
}

// ConstraintPrepare is implemented by every joint kind and by the
// contact constraint: given the step size, it returns the rows the
// velocity solver should iterate this step.
type ConstraintPrepare interface {
	Prepare(dt float64) []Row
}

// Constraint is the full per-pair contract: velocity rows plus a
// direct position-level correction run by the position solver
// (spec.md §4.7), mirroring the teacher's original SolvePosition/
// SolveVelocity split but with SolveVelocity generalized into row
// production instead of a bespoke XPBD accumulation per joint.
type Constraint interface {
	ConstraintPrepare
	PositionCorrect(dt float64)
}

// jacobianEffectiveMass computes m_eff = 1 / (JᵀM⁻¹J) for a single row
// given the two bodies' inverse mass/inertia, per spec.md §4.4.
func jacobianEffectiveMass(jLinA, jAngA, jLinB, jAngB mgl64.Vec3, a, b *body.RigidBody) float64 {
	k := a.InverseMass*jLinA.Dot(jLinA) + b.InverseMass*jLinB.Dot(jLinB)
	k += a.WorldInverseInertia().Mul3x1(jAngA).Dot(jAngA)
	k += b.WorldInverseInertia().Mul3x1(jAngB).Dot(jAngB)
	if k < 1e-10 {
		return 0
	}
	return 1.0 / k
}

// relativeVelocity projects the two bodies' current velocities through
// a row's Jacobian, giving Jv.
func relativeVelocity(row *Row, a, b *body.RigidBody) float64 {
	return row.JLinA.Dot(a.LinearVelocity) + row.JAngA.Dot(a.AngularVelocity) +
		row.JLinB.Dot(b.LinearVelocity) + row.JAngB.Dot(b.AngularVelocity)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const infinity = 1e300
