// Package solver runs the velocity and position PGS passes over the
// rows and constraints the constraint package prepares, one island at a
// time (spec.md §4.6-4.7). It never knows about joint- or contact-
// specific math: everything it touches is a constraint.Row or a
// constraint.Constraint.
package solver

import (
	"math"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/constraint"
)

// DefaultVelocityIterations is N_vel, spec.md §4.6.
const DefaultVelocityIterations = 8

// RestitutionIterations bounds the dedicated restitution pass (spec.md
// §4.6): a handful of extra sweeps restricted to rows that still carry
// a restitution term is enough for it to converge without risking an
// unbounded loop if floating point noise keeps a row just above the
// threshold.
const RestitutionIterations = 4

// Velocity runs N_vel projected-Gauss-Seidel sweeps over rows, preceded
// by warm starting and, when requested, a dedicated restitution pass.
// rows is produced fresh each step by calling Prepare on every
// constraint.Constraint in the island (constraint package, never
// cached across steps).
type Velocity struct {
	Iterations int
}

func NewVelocity() *Velocity {
	return &Velocity{Iterations: DefaultVelocityIterations}
}

// Solve applies warm starting, an optional restitution pass, then the
// main PGS sweeps, per spec.md §4.6's three-part recipe.
func (v *Velocity) Solve(rows []constraint.Row, dedicatedRestitution bool) {
	if len(rows) == 0 {
		return
	}

	warmStart(rows)

	if dedicatedRestitution {
		solveRestitutionPass(rows)
	}

	iterations := v.Iterations
	if iterations <= 0 {
		iterations = DefaultVelocityIterations
	}
	for iter := 0; iter < iterations; iter++ {
		solveSweep(rows)
	}

	for i := range rows {
		r := &rows[i]
		if r.Persist != nil {
			*r.Persist = r.Impulse
		}
	}
}

// warmStart applies each row's persisted impulse from the previous step
// to the current velocity delta before the first sweep, per spec.md
// §4.6's warm-starting rule.
func warmStart(rows []constraint.Row) {
	for i := range rows {
		r := &rows[i]
		if r.Persist == nil {
			continue
		}
		r.Impulse = *r.Persist
		if r.Impulse != 0 {
			applyImpulse(r, r.Impulse)
		}
	}
}

// solveSweep runs one full pass over every row. Friction pairs are
// skipped in the main loop and solved together afterward so the circle
// clamp sees both tangent impulses at once, per spec.md §4.6 step 2.
func solveSweep(rows []constraint.Row) {
	for i := range rows {
		r := &rows[i]
		if r.FrictionOf != nil {
			continue
		}
		solveRow(r)
	}

	solved := make(map[*constraint.Row]bool)
	for i := range rows {
		r := &rows[i]
		if r.FrictionOf == nil || r.PairWith == nil || solved[r] {
			continue
		}
		solveFrictionPair(r, r.PairWith)
		solved[r] = true
		solved[r.PairWith] = true
	}
}

// solveRow is the plain PGS update of spec.md §4.6 step 1:
// Δλ = m_eff·(rhs − J·v), clamp λ+Δλ to [lo, up], apply the delta.
func solveRow(r *constraint.Row) {
	jv := jacobianVelocity(r)
	deltaLambda := r.EffectiveMass * (r.RHS - jv)

	lower, upper := r.Lower, r.Upper
	if r.FrictionOf != nil {
		limit := r.FrictionCoeff * r.FrictionOf.Impulse
		if limit < 0 {
			limit = 0
		}
		lower, upper = -limit, limit
	}

	newImpulse := clampf(r.Impulse+deltaLambda, lower, upper)
	delta := newImpulse - r.Impulse
	r.Impulse = newImpulse
	if delta != 0 {
		applyImpulse(r, delta)
	}
}

// solveFrictionPair jointly solves the two tangent rows of a contact
// point so their combined magnitude respects the friction-circle clamp
// μ·λ_n instead of each row clamping independently into a box, per
// spec.md §4.5/§4.6.
func solveFrictionPair(r1, r2 *constraint.Row) {
	limit := r1.FrictionCoeff * r1.FrictionOf.Impulse
	if limit < 0 {
		limit = 0
	}

	jv1 := jacobianVelocity(r1)
	jv2 := jacobianVelocity(r2)

	lambda1 := r1.Impulse + r1.EffectiveMass*(r1.RHS-jv1)
	lambda2 := r2.Impulse + r2.EffectiveMass*(r2.RHS-jv2)

	length := math.Hypot(lambda1, lambda2)
	if length > limit && length > 1e-12 {
		scale := limit / length
		lambda1 *= scale
		lambda2 *= scale
	}

	delta1 := lambda1 - r1.Impulse
	delta2 := lambda2 - r2.Impulse
	r1.Impulse = lambda1
	r2.Impulse = lambda2
	if delta1 != 0 {
		applyImpulse(r1, delta1)
	}
	if delta2 != 0 {
		applyImpulse(r2, delta2)
	}
}

// solveRestitutionPass runs a smaller outer loop, before the main
// sweeps, over rows the contact package marked with a non-zero
// RestitutionBias (DedicatedRestitution set and the point was
// approaching faster than the threshold at prepare time). Each
// iteration re-measures the current approach velocity and solves
// toward the bias target; the loop stops once no eligible row's
// approach velocity still exceeds the slop, per spec.md §4.6.
func solveRestitutionPass(rows []constraint.Row) {
	for iter := 0; iter < RestitutionIterations; iter++ {
		anyAboveThreshold := false
		for i := range rows {
			r := &rows[i]
			if r.FrictionOf != nil || r.RestitutionBias == 0 {
				continue
			}
			jv := jacobianVelocity(r)
			if -jv > constraint.LinearSlop {
				anyAboveThreshold = true
			}

			deltaLambda := r.EffectiveMass * (r.RestitutionBias - jv)
			newImpulse := clampf(r.Impulse+deltaLambda, r.Lower, r.Upper)
			delta := newImpulse - r.Impulse
			r.Impulse = newImpulse
			if delta != 0 {
				applyImpulse(r, delta)
			}
		}
		if !anyAboveThreshold {
			break
		}
	}
}

// jacobianVelocity computes J·v for a row, reading from the scalar spin
// DoF instead of full angular velocity on whichever side is flagged
// SpinA/SpinB.
func jacobianVelocity(r *constraint.Row) float64 {
	v := r.JLinA.Dot(r.BodyA.LinearVelocity) + r.JLinB.Dot(r.BodyB.LinearVelocity)
	if r.SpinA && r.BodyA.HasSpin {
		v += r.JAngA.X() * r.BodyA.Spin.SpinVelocity
	} else {
		v += r.JAngA.Dot(r.BodyA.AngularVelocity)
	}
	if r.SpinB && r.BodyB.HasSpin {
		v += r.JAngB.X() * r.BodyB.Spin.SpinVelocity
	} else {
		v += r.JAngB.Dot(r.BodyB.AngularVelocity)
	}
	return v
}

// applyImpulse pushes a row's delta impulse into both bodies' velocity
// state, branching on SpinA/SpinB to target the scalar spin DoF
// (tire/vehicle joints, §GLOSSARY "spin") instead of full angular
// velocity. Spin rows encode the scalar Jacobian coefficient in the X
// component of JAngA/JAngB by convention (§constraint/vehicle.go).
func applyImpulse(r *constraint.Row, delta float64) {
	a, b := r.BodyA, r.BodyB
	if a.Kind == body.Dynamic {
		a.LinearVelocity = a.LinearVelocity.Add(r.JLinA.Mul(delta * a.InverseMass))
		if r.SpinA && a.HasSpin {
			a.Spin.SpinVelocity += r.JAngA.X() * delta * spinInverseInertia(a)
		} else {
			a.AngularVelocity = a.AngularVelocity.Add(a.WorldInverseInertia().Mul3x1(r.JAngA.Mul(delta)))
		}
	}
	if b.Kind == body.Dynamic {
		b.LinearVelocity = b.LinearVelocity.Add(r.JLinB.Mul(delta * b.InverseMass))
		if r.SpinB && b.HasSpin {
			b.Spin.SpinVelocity += r.JAngB.X() * delta * spinInverseInertia(b)
		} else {
			b.AngularVelocity = b.AngularVelocity.Add(b.WorldInverseInertia().Mul3x1(r.JAngB.Mul(delta)))
		}
	}
}

// spinInverseInertia approximates the scalar spin DoF's inverse inertia
// as the trace-average of the full inverse inertia tensor: spin rows
// couple a single scalar rate rather than a full 3-vector, so there is
// no single diagonal entry that is unambiguously "the" spin axis
// without per-body spin-axis bookkeeping the vehicle joints don't carry.
func spinInverseInertia(rb *body.RigidBody) float64 {
	inv := rb.WorldInverseInertia()
	return (inv[0] + inv[4] + inv[8]) / 3
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
