package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind is the discriminated tag spec.md §3 describes ("Shape is
// chosen via a discriminated tag plus the concrete shape payload"); the
// narrowphase dispatch table in package narrowphase is indexed by a pair
// of these.
type ShapeKind int

const (
	KindSphere ShapeKind = iota
	KindPlane
	KindCylinder
	KindCapsule
	KindBox
	KindConvexHull
	KindCompound
	KindTriangleMesh
	KindPagedTriangleMesh
)

// Shape is implemented by every collision shape variant. All geometric
// queries operate in the shape's local space; callers rotate/translate
// via Transform.
type Shape interface {
	Kind() ShapeKind
	ComputeAABB(t Transform) AABB
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	// Support returns the furthest point on the shape in the given
	// local-space direction -- the GJK/EPA primitive every shape must
	// provide, per spec.md §9.
	Support(direction mgl64.Vec3) mgl64.Vec3
	// ContactFeature returns the local-space vertices of the face (or
	// edge, or single point) most aligned with direction, used by
	// manifold generation's Sutherland-Hodgman clip.
	ContactFeature(direction mgl64.Vec3) []mgl64.Vec3
}

// Sphere ---------------------------------------------------------------

type Sphere struct {
	Radius float64
}

func (s *Sphere) Kind() ShapeKind { return KindSphere }

func (s *Sphere) ComputeAABB(t Transform) AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: t.Position.Sub(r), Max: t.Position.Add(r)}
}

func (s *Sphere) ComputeMass(density float64) float64 {
	return density * (4.0 / 3.0) * math.Pi * s.Radius * s.Radius * s.Radius
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	i := 0.4 * mass * s.Radius * s.Radius
	return mgl64.Mat3{i, 0, 0, 0, i, 0, 0, 0, i}
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return safeNormalize(direction).Mul(s.Radius)
}

func (s *Sphere) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

// Plane ------------------------------------------------------------------

// Plane is an infinite half-space: Normal·p + Distance = 0. Planes are
// always static/sensor-compatible; ComputeMass returns +Inf.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

func (p *Plane) Kind() ShapeKind { return KindPlane }

const planeHalfExtent = 1000.0

func (p *Plane) ComputeAABB(t Transform) AABB {
	const thickness = 1.0
	planePoint := p.Normal.Mul(-p.Distance).Add(t.Position)

	min := planePoint.Sub(p.Normal.Mul(thickness))
	max := planePoint

	abs := mgl64.Vec3{math.Abs(p.Normal.X()), math.Abs(p.Normal.Y()), math.Abs(p.Normal.Z())}
	for axis := 0; axis < 3; axis++ {
		if abs[axis] < 0.999 {
			min[axis] = -1e10
			max[axis] = 1e10
		}
	}
	return AABB{Min: min, Max: max}
}

func (p *Plane) ComputeMass(density float64) float64 { return math.Inf(1) }

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 { return mgl64.Mat3{} }

func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	t1, t2 := tangentBasis(p.Normal)
	onPlane := p.Normal.Mul(-p.Distance)
	var along mgl64.Vec3
	if direction.Dot(t1) < 0 {
		along = along.Add(t1.Mul(-planeHalfExtent))
	} else {
		along = along.Add(t1.Mul(planeHalfExtent))
	}
	if direction.Dot(t2) < 0 {
		along = along.Add(t2.Mul(-planeHalfExtent))
	} else {
		along = along.Add(t2.Mul(planeHalfExtent))
	}
	if direction.Dot(p.Normal) < 0 {
		along = along.Sub(p.Normal.Mul(0.5))
	}
	return onPlane.Add(along)
}

func (p *Plane) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	t1, t2 := tangentBasis(p.Normal)
	center := p.Normal.Mul(-p.Distance)
	return []mgl64.Vec3{
		center.Add(t1.Mul(-planeHalfExtent)).Add(t2.Mul(-planeHalfExtent)),
		center.Add(t1.Mul(-planeHalfExtent)).Add(t2.Mul(planeHalfExtent)),
		center.Add(t1.Mul(planeHalfExtent)).Add(t2.Mul(planeHalfExtent)),
		center.Add(t1.Mul(planeHalfExtent)).Add(t2.Mul(-planeHalfExtent)),
	}
}

// Box ----------------------------------------------------------------

type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Kind() ShapeKind { return KindBox }

func (b *Box) ComputeAABB(t Transform) AABB {
	corners := boxCorners(b.HalfExtents)
	world := t.TransformPoint(corners[0])
	min, max := world, world
	for i := 1; i < 8; i++ {
		w := t.TransformPoint(corners[i])
		min = mgl64.Vec3{min3(min.X(), w.X()), min3(min.Y(), w.Y()), min3(min.Z(), w.Z())}
		max = mgl64.Vec3{max3(max.X(), w.X()), max3(max.Y(), w.Y()), max3(max.Z(), w.Z())}
	}
	return AABB{Min: min, Max: max}
}

func (b *Box) ComputeMass(density float64) float64 {
	return density * 8 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x, y, z := b.HalfExtents.X()*2, b.HalfExtents.Y()*2, b.HalfExtents.Z()*2
	f := mass / 12.0
	return mgl64.Mat3{
		f * (y*y + z*z), 0, 0,
		0, f * (x*x + z*z), 0,
		0, 0, f * (x*x + y*y),
	}
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	h := b.HalfExtents
	return mgl64.Vec3{signedExtent(direction.X(), h.X()), signedExtent(direction.Y(), h.Y()), signedExtent(direction.Z(), h.Z())}
}

func (b *Box) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	dir := safeNormalize(direction)
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	faces := []struct {
		normal mgl64.Vec3
		verts  []mgl64.Vec3
	}{
		{mgl64.Vec3{1, 0, 0}, []mgl64.Vec3{{hx, -hy, -hz}, {hx, -hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}},
		{mgl64.Vec3{-1, 0, 0}, []mgl64.Vec3{{-hx, -hy, hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {-hx, hy, hz}}},
		{mgl64.Vec3{0, 1, 0}, []mgl64.Vec3{{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}},
		{mgl64.Vec3{0, -1, 0}, []mgl64.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, -hy, -hz}, {-hx, -hy, -hz}}},
		{mgl64.Vec3{0, 0, 1}, []mgl64.Vec3{{-hx, -hy, hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, -hy, hz}}},
		{mgl64.Vec3{0, 0, -1}, []mgl64.Vec3{{hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}}},
	}

	best := -math.MaxFloat64
	var bestVerts []mgl64.Vec3
	for _, f := range faces {
		if d := dir.Dot(f.normal); d > best {
			best = d
			bestVerts = f.verts
		}
	}
	return bestVerts
}

func boxCorners(h mgl64.Vec3) [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		{-h.X(), -h.Y(), -h.Z()}, {h.X(), -h.Y(), -h.Z()},
		{-h.X(), h.Y(), -h.Z()}, {h.X(), h.Y(), -h.Z()},
		{-h.X(), -h.Y(), h.Z()}, {h.X(), -h.Y(), h.Z()},
		{-h.X(), h.Y(), h.Z()}, {h.X(), h.Y(), h.Z()},
	}
}

// Cylinder -------------------------------------------------------------

// Cylinder is capped, aligned with the local y-axis.
type Cylinder struct {
	Radius     float64
	HalfHeight float64
}

func (c *Cylinder) Kind() ShapeKind { return KindCylinder }

func (c *Cylinder) ComputeAABB(t Transform) AABB {
	// Conservative: bound by the sphere circumscribing the cylinder's
	// cap circle, rotated. Cheap and always valid; the narrowphase does
	// the precise work.
	r := math.Hypot(c.Radius, c.HalfHeight)
	return AABB{Min: t.Position.Sub(mgl64.Vec3{r, r, r}), Max: t.Position.Add(mgl64.Vec3{r, r, r})}
}

func (c *Cylinder) ComputeMass(density float64) float64 {
	return density * math.Pi * c.Radius * c.Radius * (2 * c.HalfHeight)
}

func (c *Cylinder) ComputeInertia(mass float64) mgl64.Mat3 {
	r2 := c.Radius * c.Radius
	h2 := (2 * c.HalfHeight) * (2 * c.HalfHeight)
	iy := 0.5 * mass * r2
	ixz := mass * (3*r2 + h2) / 12.0
	return mgl64.Mat3{ixz, 0, 0, 0, iy, 0, 0, 0, ixz}
}

func (c *Cylinder) Support(direction mgl64.Vec3) mgl64.Vec3 {
	sigY := 0.0
	if direction.Y() > 0 {
		sigY = c.HalfHeight
	} else {
		sigY = -c.HalfHeight
	}
	radial := mgl64.Vec3{direction.X(), 0, direction.Z()}
	if radial.LenSqr() < 1e-12 {
		return mgl64.Vec3{0, sigY, 0}
	}
	radial = radial.Normalize().Mul(c.Radius)
	return mgl64.Vec3{radial.X(), sigY, radial.Z()}
}

func (c *Cylinder) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	dir := safeNormalize(direction)
	if math.Abs(dir.Y()) > 0.7 {
		// Cap face: approximate with an octagon.
		sign := 1.0
		if dir.Y() < 0 {
			sign = -1.0
		}
		pts := make([]mgl64.Vec3, 0, 8)
		for i := 0; i < 8; i++ {
			a := float64(i) / 8 * 2 * math.Pi
			pts = append(pts, mgl64.Vec3{c.Radius * math.Cos(a), sign * c.HalfHeight, c.Radius * math.Sin(a)})
		}
		return pts
	}
	return []mgl64.Vec3{c.Support(direction)}
}

// Capsule ---------------------------------------------------------------

// Capsule is a swept sphere along the local y-axis between the two caps.
type Capsule struct {
	Radius     float64
	HalfHeight float64
}

func (c *Capsule) Kind() ShapeKind { return KindCapsule }

func (c *Capsule) ComputeAABB(t Transform) AABB {
	r := mgl64.Vec3{c.Radius, c.Radius + c.HalfHeight, c.Radius}
	return AABB{Min: t.Position.Sub(r), Max: t.Position.Add(r)}
}

func (c *Capsule) ComputeMass(density float64) float64 {
	sphereVol := (4.0 / 3.0) * math.Pi * c.Radius * c.Radius * c.Radius
	cylVol := math.Pi * c.Radius * c.Radius * (2 * c.HalfHeight)
	return density * (sphereVol + cylVol)
}

func (c *Capsule) ComputeInertia(mass float64) mgl64.Mat3 {
	// Approximate as a cylinder of the same half-height plus spherical
	// caps' contribution folded into the radius term; exact enough for
	// warm-starting a solver, not for a CAD export.
	r2 := c.Radius * c.Radius
	h2 := (2 * c.HalfHeight) * (2 * c.HalfHeight)
	iy := 0.5 * mass * r2
	ixz := mass*(3*r2+h2)/12.0 + 0.4*mass*r2
	return mgl64.Mat3{ixz, 0, 0, 0, iy, 0, 0, 0, ixz}
}

func (c *Capsule) Support(direction mgl64.Vec3) mgl64.Vec3 {
	dir := safeNormalize(direction)
	sign := 1.0
	if dir.Y() < 0 {
		sign = -1.0
	}
	center := mgl64.Vec3{0, sign * c.HalfHeight, 0}
	return center.Add(dir.Mul(c.Radius))
}

func (c *Capsule) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{c.Support(direction)}
}

// ConvexHull -------------------------------------------------------------

// ConvexHull is an arbitrary convex polyhedron given by its vertex set
// and, optionally, precomputed faces for ContactFeature. Meshes are
// shared by reference (spec.md §3): multiple bodies may point at the
// same *ConvexHull.
type ConvexHull struct {
	Vertices []mgl64.Vec3
	Faces    [][]int // indices into Vertices, one face per entry
}

func (c *ConvexHull) Kind() ShapeKind { return KindConvexHull }

func (c *ConvexHull) ComputeAABB(t Transform) AABB {
	if len(c.Vertices) == 0 {
		return AABB{}
	}
	min := t.TransformPoint(c.Vertices[0])
	max := min
	for _, v := range c.Vertices[1:] {
		w := t.TransformPoint(v)
		min = mgl64.Vec3{min3(min.X(), w.X()), min3(min.Y(), w.Y()), min3(min.Z(), w.Z())}
		max = mgl64.Vec3{max3(max.X(), w.X()), max3(max.Y(), w.Y()), max3(max.Z(), w.Z())}
	}
	return AABB{Min: min, Max: max}
}

func (c *ConvexHull) ComputeMass(density float64) float64 {
	// Approximate with the bounding box volume scaled down; exact
	// polyhedron mass integration is out of scope for the solver's
	// needs (it only needs a plausible, positive mass).
	aabb := c.ComputeAABB(NewTransform())
	d := aabb.Max.Sub(aabb.Min)
	return density * d.X() * d.Y() * d.Z() * 0.6
}

func (c *ConvexHull) ComputeInertia(mass float64) mgl64.Mat3 {
	aabb := c.ComputeAABB(NewTransform())
	d := aabb.Max.Sub(aabb.Min)
	f := mass / 12.0
	return mgl64.Mat3{
		f * (d.Y()*d.Y() + d.Z()*d.Z()), 0, 0,
		0, f * (d.X()*d.X() + d.Z()*d.Z()), 0,
		0, 0, f * (d.X()*d.X() + d.Y()*d.Y()),
	}
}

func (c *ConvexHull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := -math.MaxFloat64
	var bestV mgl64.Vec3
	for _, v := range c.Vertices {
		if d := v.Dot(direction); d > best {
			best = d
			bestV = v
		}
	}
	return bestV
}

func (c *ConvexHull) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	if len(c.Faces) == 0 {
		return []mgl64.Vec3{c.Support(direction)}
	}
	dir := safeNormalize(direction)
	best := -math.MaxFloat64
	var bestFace []int
	for _, face := range c.Faces {
		if len(face) < 3 {
			continue
		}
		n := faceNormal(c.Vertices, face)
		if d := n.Dot(dir); d > best {
			best = d
			bestFace = face
		}
	}
	if bestFace == nil {
		return []mgl64.Vec3{c.Support(direction)}
	}
	verts := make([]mgl64.Vec3, len(bestFace))
	for i, idx := range bestFace {
		verts[i] = c.Vertices[idx]
	}
	return verts
}

func faceNormal(verts []mgl64.Vec3, face []int) mgl64.Vec3 {
	a, b, c := verts[face[0]], verts[face[1]], verts[face[2]]
	return safeNormalize(b.Sub(a).Cross(c.Sub(a)))
}

// Compound ----------------------------------------------------------------

// CompoundChild is one positioned/oriented sub-shape of a Compound.
type CompoundChild struct {
	Shape     Shape
	Transform Transform
}

// Compound is a list of positioned/oriented sub-shapes, per spec.md §3.
// Raycast and narrowphase dispatch report a hit's ChildIndex so callers
// can identify which child was struck (spec.md §8 scenario 6).
type Compound struct {
	Children []CompoundChild
}

func (c *Compound) Kind() ShapeKind { return KindCompound }

func (c *Compound) ComputeAABB(t Transform) AABB {
	if len(c.Children) == 0 {
		return AABB{}
	}
	var total AABB
	for i, child := range c.Children {
		childWorld := composeTransform(t, child.Transform)
		box := child.Shape.ComputeAABB(childWorld)
		if i == 0 {
			total = box
		} else {
			total = total.Union(box)
		}
	}
	return total
}

func (c *Compound) ComputeMass(density float64) float64 {
	total := 0.0
	for _, child := range c.Children {
		total += child.Shape.ComputeMass(density)
	}
	return total
}

func (c *Compound) ComputeInertia(mass float64) mgl64.Mat3 {
	// Parallel-axis theorem across children, mass split evenly by
	// volume share already baked into ComputeMass per child.
	total := mgl64.Mat3{}
	totalMass := c.ComputeMass(1.0)
	if totalMass <= 0 {
		return total
	}
	for _, child := range c.Children {
		childMass := child.Shape.ComputeMass(1.0) / totalMass * mass
		local := child.Shape.ComputeInertia(childMass)
		offset := child.Transform.Position
		d2 := offset.Dot(offset)
		parallel := mgl64.Mat3{
			childMass * (d2 - offset.X()*offset.X()), -childMass * offset.X() * offset.Y(), -childMass * offset.X() * offset.Z(),
			-childMass * offset.Y() * offset.X(), childMass * (d2 - offset.Y()*offset.Y()), -childMass * offset.Y() * offset.Z(),
			-childMass * offset.Z() * offset.X(), -childMass * offset.Z() * offset.Y(), childMass * (d2 - offset.Z()*offset.Z()),
		}
		total = total.Add(local).Add(parallel)
	}
	return total
}

func (c *Compound) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := -math.MaxFloat64
	var bestPoint mgl64.Vec3
	for _, child := range c.Children {
		localDir := child.Transform.InverseRotation.Rotate(direction)
		localSupport := child.Shape.Support(localDir)
		worldSupport := child.Transform.TransformPoint(localSupport)
		if d := worldSupport.Dot(direction); d > best {
			best = d
			bestPoint = worldSupport
		}
	}
	return bestPoint
}

func (c *Compound) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	// Contact generation for compounds resolves per struck child in
	// narrowphase (it re-dispatches on child.Shape directly); the
	// top-level feature here is only used by generic fallbacks.
	support := c.Support(direction)
	return []mgl64.Vec3{support}
}

// ChildIndexAt returns the index of the child shape whose support point
// in direction matches Compound.Support's choice, used by raycast to
// report which child was hit (spec.md §8 scenario 6).
func (c *Compound) ChildIndexAt(direction mgl64.Vec3) int {
	best := -math.MaxFloat64
	bestIdx := -1
	for i, child := range c.Children {
		localDir := child.Transform.InverseRotation.Rotate(direction)
		localSupport := child.Shape.Support(localDir)
		worldSupport := child.Transform.TransformPoint(localSupport)
		if d := worldSupport.Dot(direction); d > best {
			best = d
			bestIdx = i
		}
	}
	return bestIdx
}

func composeTransform(parent, child Transform) Transform {
	rot := parent.Rotation.Mul(child.Rotation).Normalize()
	return Transform{
		Position:        parent.TransformPoint(child.Position),
		Rotation:        rot,
		InverseRotation: rot.Inverse(),
	}
}

// helpers ----------------------------------------------------------------

func safeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	if v.LenSqr() < 1e-16 {
		return mgl64.Vec3{0, 1, 0}
	}
	return v.Normalize()
}

func signedExtent(component, halfExtent float64) float64 {
	if component < 0 {
		return -halfExtent
	}
	return halfExtent
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
