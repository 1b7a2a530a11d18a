package narrowphase

import (
	"math"

	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/entity"

	"github.com/go-gl/mathgl/mgl64"
)

// ContactCachingThreshold is how close an existing point's pivot must
// be to a fresh candidate to be considered the same contact (point
// merging, spec.md §4.3 step 3) -- distinct from and smaller than
// body.ContactBreakingThreshold (point retirement, step 4).
const ContactCachingThreshold = 0.01

// TireArcThreshold is the tire-specific point-merging tie-break, an
// arc-distance around the spin axis rather than Euclidean pivot
// distance, per spec.md §4.3 step 3 and the GLOSSARY. Kept distinct
// from ContactCachingThreshold per spec.md §9's resolved Open Question
// -- the tire path never reuses the Euclidean threshold.
const TireArcThreshold = 0.05

const maxManifoldPoints = 4

// Point is a persistent contact point. LocalA/LocalB are object-space
// pivots on each body so the point survives both bodies moving;
// Distance is refreshed every step from the current transforms.
type Point struct {
	LocalA, LocalB mgl64.Vec3
	Normal         mgl64.Vec3
	Distance       float64
	Lifetime       int

	Material body.Material

	NormalImpulse   float64
	TangentImpulse  [2]float64
	RollingImpulse  [2]float64
	SpinImpulse     float64

	// TireAngle is the spin-axis angle the pivot on A was captured at,
	// used by the arc-distance tie-break for tire contacts.
	TireAngle float64
}

// Manifold is the persistent contact state for one broadphase pair.
type Manifold struct {
	A, B   entity.Handle
	IsTire bool
	Points []Point
}

func NewManifold(a, b entity.Handle) *Manifold {
	return &Manifold{A: a, B: b, Points: make([]Point, 0, maxManifoldPoints)}
}

// RecomputeSeparation refreshes each existing point's Distance from the
// current transforms, per spec.md §4.3 step 1.
func (m *Manifold) RecomputeSeparation(rbA, rbB *body.RigidBody) {
	for i := range m.Points {
		p := &m.Points[i]
		worldA := rbA.Transform.TransformPoint(p.LocalA)
		worldB := rbB.Transform.TransformPoint(p.LocalB)
		p.Distance = worldB.Sub(worldA).Dot(p.Normal)
	}
}

// Update runs steps 2-6 of spec.md §4.3 for one manifold: candidate
// generation has already happened (candidates is the dispatch's
// output); Update merges candidates into existing points, retires
// stale points, inserts/replaces to stay within 4 points, and mixes
// materials once per newly created point.
func (m *Manifold) Update(rbA, rbB *body.RigidBody, candidates []Candidate, mix func(a, b body.Material) body.Material, spinAxis mgl64.Vec3) {
	consumed := make([]bool, len(candidates))

	for i := range m.Points {
		p := &m.Points[i]
		best := -1
		bestDist := ContactCachingThreshold
		if m.IsTire {
			bestDist = TireArcThreshold
		}

		for ci, c := range candidates {
			if consumed[ci] {
				continue
			}
			var dist float64
			if m.IsTire {
				dist = arcDistance(p.TireAngle, c.WorldA, rbA.Transform.Position, spinAxis)
			} else {
				worldA := rbA.Transform.TransformPoint(p.LocalA)
				dist = worldA.Sub(c.WorldA).Len()
			}
			if dist < bestDist {
				bestDist = dist
				best = ci
			}
		}

		if best >= 0 {
			c := candidates[best]
			p.LocalA = rbA.Transform.InverseTransformPoint(c.WorldA)
			p.LocalB = rbB.Transform.InverseTransformPoint(c.WorldB)
			p.Normal = c.Normal
			p.Distance = c.Distance
			p.Lifetime++
			consumed[best] = true
		}
	}

	m.retirePoints(rbA, rbB)

	for ci, c := range candidates {
		if consumed[ci] {
			continue
		}
		m.insertOrReplace(rbA, rbB, c, mix)
	}
}

func (m *Manifold) retirePoints(rbA, rbB *body.RigidBody) {
	kept := m.Points[:0]
	for _, p := range m.Points {
		if p.Distance > body.ContactBreakingThreshold {
			continue
		}
		worldA := rbA.Transform.TransformPoint(p.LocalA)
		worldB := rbB.Transform.TransformPoint(p.LocalB)
		delta := worldB.Sub(worldA)
		tangential := delta.Sub(p.Normal.Mul(delta.Dot(p.Normal)))
		if tangential.Len() > body.ContactBreakingThreshold {
			continue
		}
		kept = append(kept, p)
	}
	m.Points = kept
}

func (m *Manifold) insertOrReplace(rbA, rbB *body.RigidBody, c Candidate, mix func(a, b body.Material) body.Material) {
	newPoint := Point{
		LocalA:   rbA.Transform.InverseTransformPoint(c.WorldA),
		LocalB:   rbB.Transform.InverseTransformPoint(c.WorldB),
		Normal:   c.Normal,
		Distance: c.Distance,
		Lifetime: 0,
		Material: mix(rbA.Material, rbB.Material),
	}

	if len(m.Points) < maxManifoldPoints {
		m.Points = append(m.Points, newPoint)
		return
	}

	replace := bestReplacementIndex(m.Points, newPoint)
	if replace >= 0 {
		m.Points[replace] = newPoint
	}
}

// bestReplacementIndex implements spec.md §4.3 step 5: for each of the
// five possible four-point subsets of {existing 4 ∪ candidate}, score
// by depth and planar area; return the existing index whose removal
// yields the best-scoring subset, or -1 if keeping all 4 existing
// points scores at least as well.
func bestReplacementIndex(existing []Point, candidate Point) int {
	pts := make([]mgl64.Vec3, len(existing)+1)
	depths := make([]float64, len(existing)+1)
	for i, p := range existing {
		pts[i] = p.LocalA
		depths[i] = -p.Distance
	}
	pts[len(existing)] = candidate.LocalA
	depths[len(existing)] = -candidate.Distance

	bestScore := -1.0
	bestDrop := -1
	for drop := 0; drop <= len(existing); drop++ {
		subset := make([]mgl64.Vec3, 0, 4)
		subsetDepth := 0.0
		for i := range pts {
			if i == drop {
				continue
			}
			subset = append(subset, pts[i])
			if depths[i] > subsetDepth {
				subsetDepth = depths[i]
			}
		}
		score := subsetDepth + polygonArea(subset)
		if score > bestScore {
			bestScore = score
			bestDrop = drop
		}
	}

	if bestDrop == len(existing) {
		return -1 // best subset is "drop the candidate" -- keep existing points
	}
	return bestDrop
}

func polygonArea(points []mgl64.Vec3) float64 {
	if len(points) < 3 {
		return 0
	}
	center := polygonCenter(points)
	area := 0.0
	for i := range points {
		a := points[i].Sub(center)
		b := points[(i+1)%len(points)].Sub(center)
		area += a.Cross(b).Len()
	}
	return area * 0.5
}

// arcDistance measures the tire-specific tie-break: the angular
// distance, scaled back to an arc length by a representative radius
// (the pivot's distance from the spin axis), between where the
// existing pivot's angle was captured and where the candidate now
// sits, per spec.md §4.3 step 3 and the GLOSSARY.
func arcDistance(existingAngle float64, candidateWorldA, center mgl64.Vec3, spinAxis mgl64.Vec3) float64 {
	radial := candidateWorldA.Sub(center)
	radial = radial.Sub(spinAxis.Mul(radial.Dot(spinAxis)))
	radius := radial.Len()
	if radius < 1e-8 {
		return 0
	}

	candidateAngle := angleOf(radial, spinAxis)
	delta := candidateAngle - existingAngle
	for delta > math.Pi {
		delta -= 2 * math.Pi
	}
	for delta < -math.Pi {
		delta += 2 * math.Pi
	}
	return delta * radius
}

func angleOf(radial, axis mgl64.Vec3) float64 {
	t1, t2 := tangentBasisFor(axis)
	x := radial.Dot(t1)
	y := radial.Dot(t2)
	return math.Atan2(y, x)
}
