package body

import "github.com/go-gl/mathgl/mgl64"

// RayHit describes where a ray struck a shape, in world space.
type RayHit struct {
	Distance   float64
	Point      mgl64.Vec3
	Normal     mgl64.Vec3
	ChildIndex int // -1 unless the hit shape was a Compound child
}

// IntersectAABB is the slab test used to cheaply reject a body before
// paying for the shape-level raycast below.
func IntersectAABB(box AABB, origin, dir mgl64.Vec3, maxDist float64) bool {
	tMin, tMax := 0.0, maxDist
	for axis := 0; axis < 3; axis++ {
		o, d := component(origin, axis), component(dir, axis)
		lo, hi := component(box.Min, axis), component(box.Max, axis)
		if d == 0 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		inv := 1.0 / d
		t0, t1 := (lo-o)*inv, (hi-o)*inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return false
		}
	}
	return true
}

func component(v mgl64.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}

const rayMarchSteps = 64
const rayBisectIterations = 24

// Raycast finds the nearest point along the segment [origin, origin +
// dir*maxDist] at which shape (placed at t) is struck, via a coarse
// march to bracket the entry crossing followed by bisection, since a
// convex shape's occupancy along a ray is monotonic. Plane and
// Compound get exact/recursive handling; every other shape goes
// through the generic convex path using Support.
func Raycast(shape Shape, t Transform, origin, dir mgl64.Vec3, maxDist float64) (RayHit, bool) {
	if plane, ok := shape.(*Plane); ok {
		return raycastPlane(plane, t, origin, dir, maxDist)
	}
	if compound, ok := shape.(*Compound); ok {
		return raycastCompound(compound, t, origin, dir, maxDist)
	}

	inside := func(dist float64) bool {
		p := origin.Add(dir.Mul(dist))
		return containsPoint(shape, t, p)
	}

	if inside(0) {
		return RayHit{Distance: 0, Point: origin, Normal: dir.Mul(-1), ChildIndex: -1}, true
	}

	step := maxDist / rayMarchSteps
	prev := 0.0
	found := false
	var lo, hi float64
	for i := 1; i <= rayMarchSteps; i++ {
		cur := float64(i) * step
		if inside(cur) {
			lo, hi = prev, cur
			found = true
			break
		}
		prev = cur
	}
	if !found {
		return RayHit{}, false
	}

	for i := 0; i < rayBisectIterations; i++ {
		mid := (lo + hi) / 2
		if inside(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}

	hitPoint := origin.Add(dir.Mul(hi))
	normal := approximateNormal(shape, t, hitPoint)
	return RayHit{Distance: hi, Point: hitPoint, Normal: normal, ChildIndex: -1}, true
}

// containsPoint tests point membership by checking whether the shape's
// support function ever extends past point along the point's own
// outward direction from the shape's transform origin -- equivalent to
// asking whether point lies within every supporting halfspace.
func containsPoint(shape Shape, t Transform, point mgl64.Vec3) bool {
	local := t.InverseTransformPoint(point)
	for _, dir := range sampleDirections {
		support := shape.Support(dir)
		if support.Dot(dir) < local.Dot(dir)-1e-9 {
			return false
		}
	}
	return true
}

// approximateNormal estimates the outward surface normal at a hit
// point as the direction from the shape's center to the point; exact
// for Sphere, a reasonable approximation for Box/Capsule/Cylinder/
// ConvexHull given the contact manifold's own clipping refines the
// actual contact normal once a real overlap is resolved.
func approximateNormal(shape Shape, t Transform, point mgl64.Vec3) mgl64.Vec3 {
	local := t.InverseTransformPoint(point)
	if local.LenSqr() < 1e-12 {
		return mgl64.Vec3{0, 1, 0}
	}
	return t.TransformDirection(local.Normalize())
}

func raycastPlane(p *Plane, t Transform, origin, dir mgl64.Vec3, maxDist float64) (RayHit, bool) {
	worldNormal := t.Rotation.Rotate(p.Normal)
	denom := worldNormal.Dot(dir)
	if denom >= 0 {
		return RayHit{}, false
	}
	pointOnPlane := t.Position.Add(worldNormal.Mul(-p.Distance))
	dist := worldNormal.Dot(pointOnPlane.Sub(origin)) / denom
	if dist < 0 || dist > maxDist {
		return RayHit{}, false
	}
	hitPoint := origin.Add(dir.Mul(dist))
	return RayHit{Distance: dist, Point: hitPoint, Normal: worldNormal, ChildIndex: -1}, true
}

func raycastCompound(c *Compound, t Transform, origin, dir mgl64.Vec3, maxDist float64) (RayHit, bool) {
	best := RayHit{}
	bestFound := false
	for i, child := range c.Children {
		childWorld := composeTransform(t, child.Transform)
		hit, ok := Raycast(child.Shape, childWorld, origin, dir, maxDist)
		if !ok {
			continue
		}
		if !bestFound || hit.Distance < best.Distance {
			hit.ChildIndex = i
			best = hit
			bestFound = true
		}
	}
	return best, bestFound
}

// sampleDirections is a fixed spread of unit vectors used by
// containsPoint's halfspace test; 26 directions (face/edge/vertex
// normals of a cube) is the same spread Bullet's convex sweep sampling
// uses for a cheap, orientation-independent approximation.
var sampleDirections = buildSampleDirections()

func buildSampleDirections() []mgl64.Vec3 {
	var dirs []mgl64.Vec3
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			for z := -1; z <= 1; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				v := mgl64.Vec3{float64(x), float64(y), float64(z)}
				dirs = append(dirs, v.Normalize())
			}
		}
	}
	return dirs
}
