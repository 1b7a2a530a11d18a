package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// clipFeatures reduces two world-space contact features (point, edge,
// or face) to the 1-4 points that actually touch, via Sutherland-
// Hodgman clipping of the smaller ("incident") feature against the
// larger ("reference") one's side planes, then a final clip against
// the reference plane itself. Adapted from the teacher's
// epa/manifold.go GenerateManifold.
func clipFeatures(featureA, featureB []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	var incident, reference []mgl64.Vec3
	if len(featureB) <= len(featureA) {
		incident, reference = featureB, featureA
	} else {
		incident, reference = featureA, featureB
	}

	if len(incident) == 1 {
		return incident
	}
	if len(reference) < 3 {
		return incident
	}

	clipped := clipAgainstSidePlanes(incident, reference, normal)
	if len(clipped) == 0 {
		return nil
	}

	refNormal := faceNormalOf(reference)
	if refNormal.Dot(normal) < 0 {
		refNormal = refNormal.Mul(-1)
	}
	offset := reference[0].Dot(refNormal)

	var result []mgl64.Vec3
	for _, p := range clipped {
		if p.Dot(refNormal)-offset <= 1e-6 {
			result = append(result, p)
		}
	}

	if len(result) > 4 {
		result = reduceToFour(result, normal)
	}
	return result
}

func faceNormalOf(polygon []mgl64.Vec3) mgl64.Vec3 {
	edge1 := polygon[1].Sub(polygon[0])
	edge2 := polygon[2].Sub(polygon[0])
	n := edge1.Cross(edge2)
	if n.LenSqr() < 1e-16 {
		return mgl64.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

func clipAgainstSidePlanes(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	output := incident
	center := polygonCenter(reference)

	for i := 0; i < len(reference) && len(output) > 0; i++ {
		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		edge := v2.Sub(v1)
		clipNormal := edge.Cross(normal)
		if clipNormal.LenSqr() < 1e-16 {
			continue
		}
		clipNormal = clipNormal.Normalize()

		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, clipNormal)
	}
	return output
}

func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	if len(polygon) == 0 {
		return polygon
	}

	const tolerance = 1e-6
	var output []mgl64.Vec3

	for i := 0; i < len(polygon); i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -tolerance {
			output = append(output, current)
			if nextDist < -tolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -tolerance {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}
	return output
}

func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	dist := p1.Sub(planePoint).Dot(planeNormal)
	denom := dir.Dot(planeNormal)
	if math.Abs(denom) < 1e-10 {
		return p1
	}
	t := -dist / denom
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p1.Add(dir.Mul(t))
}

func polygonCenter(points []mgl64.Vec3) mgl64.Vec3 {
	sum := mgl64.Vec3{}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// reduceToFour keeps the four most extreme points along a tangent
// basis of normal -- enough to preserve a stable contact footprint.
func reduceToFour(points []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	t1, t2 := tangentBasisFor(normal)

	minX, maxX, minY, maxY := 0, 0, 0, 0
	minXv, maxXv := math.Inf(1), math.Inf(-1)
	minYv, maxYv := math.Inf(1), math.Inf(-1)

	for i, p := range points {
		x, y := p.Dot(t1), p.Dot(t2)
		if x < minXv {
			minXv, minX = x, i
		}
		if x > maxXv {
			maxXv, maxX = x, i
		}
		if y < minYv {
			minYv, minY = y, i
		}
		if y > maxYv {
			maxYv, maxY = y, i
		}
	}

	seen := map[int]bool{minX: true, maxX: true, minY: true, maxY: true}
	result := make([]mgl64.Vec3, 0, 4)
	for idx := range seen {
		result = append(result, points[idx])
	}
	return result
}

func tangentBasisFor(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	t1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		t1 = mgl64.Vec3{0, 1, 0}
	}
	t1 = t1.Sub(normal.Mul(t1.Dot(normal))).Normalize()
	t2 := normal.Cross(t1).Normalize()
	return t1, t2
}
