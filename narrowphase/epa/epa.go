package epa

import (
	"github.com/quillphysics/quill/narrowphase/gjk"

	"github.com/go-gl/mathgl/mgl64"
)

// Result is the penetration information EPA converges to: Normal points
// from A toward B (the direction to separate them), Distance is the
// penetration depth, always non-negative.
type Result struct {
	Normal   mgl64.Vec3
	Distance float64
}

// Run computes penetration depth and contact normal for two convex
// shapes already proven overlapping by gjk.GJK. simplex is GJK's final
// simplex; a tetrahedron (Count==4) is the expected case, anything
// smaller is handled as a documented geometric degeneracy per spec.md
// §4.3/§7, never as an error path.
func Run(a, b gjk.Support, simplex *gjk.Simplex) Result {
	if simplex.Count < 4 {
		return degenerateResult(a, b, simplex)
	}

	builder := builderPool.Get().(*PolytopeBuilder)
	defer builderPool.Put(builder)
	builder.Reset()

	if err := builder.BuildInitialFaces(simplex); err != nil {
		return degenerateResult(a, b, simplex)
	}

	for i := 0; i < MaxIterations; i++ {
		if len(builder.faces) == 0 {
			break
		}

		closestIdx := builder.FindClosestFaceIndex()
		closest := builder.faces[closestIdx]

		if closest.Distance < MinFaceDistance {
			builder.faces[closestIdx] = builder.faces[len(builder.faces)-1]
			builder.faces = builder.faces[:len(builder.faces)-1]
			continue
		}

		support := gjk.MinkowskiSupport(a, b, closest.Normal)
		distance := support.Dot(closest.Normal)

		if distance-closest.Distance < ConvergenceTolerance {
			return Result{Normal: closest.Normal, Distance: closest.Distance}
		}

		if err := builder.AddPointAndRebuildFaces(support, closestIdx); err != nil {
			return Result{Normal: closest.Normal, Distance: closest.Distance}
		}
	}

	if len(builder.faces) > 0 {
		idx := builder.FindClosestFaceIndex()
		return Result{Normal: builder.faces[idx].Normal, Distance: builder.faces[idx].Distance}
	}
	return degenerateResult(a, b, simplex)
}

// degenerateResult estimates penetration from whatever the simplex
// gives us, per spec.md §7's "documented fallback axis, no exception
// path" rule for geometric degeneracies.
func degenerateResult(a, b gjk.Support, simplex *gjk.Simplex) Result {
	if simplex.Count >= 2 {
		p0, p1 := simplex.Points[0], simplex.Points[1]
		d0, d1 := p0.Len(), p1.Len()
		if d0 < d1 {
			return Result{Normal: safeNormalize(p0), Distance: d0}
		}
		return Result{Normal: safeNormalize(p1), Distance: d1}
	}

	center := gjk.MinkowskiSupport(a, b, mgl64.Vec3{0, 1, 0})
	if center.LenSqr() < NormalSnapThreshold*NormalSnapThreshold {
		return Result{Normal: mgl64.Vec3{0, 1, 0}, Distance: DegeneratePenetration}
	}
	return Result{Normal: safeNormalize(center.Mul(-1)), Distance: DegeneratePenetration}
}

func safeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}
	return v.Mul(1.0 / l)
}
