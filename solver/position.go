package solver

import "github.com/quillphysics/quill/constraint"

// DefaultPositionIterations is N_pos, spec.md §4.7.
const DefaultPositionIterations = 3

// PenetrationCutoff is the minimum-error cut-off spec.md §4.7 names:
// once every constraint reports no penetration worth correcting, the
// position pass exits early rather than spending the remaining
// iterations on nothing. constraint.LinearSlop is this engine's single
// canonical error tolerance, so the position solver cuts off at the
// same value the row-level Baumgarte term already stops pushing at.
const PenetrationCutoff = constraint.LinearSlop

// Position runs N_pos direct position-space correction passes over a
// set of constraints, independent of velocity, per spec.md §4.7.
type Position struct {
	Iterations int
}

func NewPosition() *Position {
	return &Position{Iterations: DefaultPositionIterations}
}

// Solve calls PositionCorrect on every constraint for up to Iterations
// passes, exiting early once maxPenetration reports no further work.
// maxPenetration, when non-nil, lets a caller (the coordinator, which
// owns the manifolds) report the worst remaining penetration after each
// pass so the loop can cut off per spec.md §4.7's early-exit rule;
// passing nil runs the fixed iteration count unconditionally.
func (p *Position) Solve(dt float64, constraints []constraint.Constraint, maxPenetration func() float64) {
	iterations := p.Iterations
	if iterations <= 0 {
		iterations = DefaultPositionIterations
	}

	for iter := 0; iter < iterations; iter++ {
		for _, c := range constraints {
			c.PositionCorrect(dt)
		}
		if maxPenetration != nil && maxPenetration() <= PenetrationCutoff {
			break
		}
	}
}
