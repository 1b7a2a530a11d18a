// Package narrowphase recomputes persistent contact manifolds for
// every live broadphase pair: candidate generation via GJK/EPA (or the
// analytic plane path), point merging/retirement/replacement, and
// material mixing, per spec.md §4.3.
package narrowphase

import "github.com/go-gl/mathgl/mgl64"

// Candidate is one freshly generated contact point in world space,
// before it has been merged into or inserted as a persistent Point.
// Distance is the signed separation along Normal: negative means the
// two pivots are interpenetrating.
type Candidate struct {
	WorldA, WorldB mgl64.Vec3
	Normal         mgl64.Vec3
	Distance       float64
}
