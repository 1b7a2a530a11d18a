// Package gjk implements the Gilbert-Johnson-Keerthi algorithm for
// convex-convex overlap testing via the Minkowski difference, adapted
// from the teacher's gjk package to operate on plain world-space
// support functions instead of *actor.RigidBody, so narrowphase can
// hand it any body.Shape wrapped in a transform without an import
// cycle back into package body.
package gjk

import "github.com/go-gl/mathgl/mgl64"

// Support returns the furthest point of a shape, in world space, along
// direction.
type Support func(direction mgl64.Vec3) mgl64.Vec3

// Simplex holds 1-4 points of the Minkowski difference A-B built up
// during a GJK run; EPA consumes the final tetrahedron directly.
type Simplex struct {
	Points [4]mgl64.Vec3
	Count  int
}

func (s *Simplex) Reset() { s.Count = 0 }

// MinkowskiSupport returns supportA(direction) - supportB(-direction),
// the extreme point of A-B along direction.
func MinkowskiSupport(a, b Support, direction mgl64.Vec3) mgl64.Vec3 {
	return a(direction).Sub(b(direction.Mul(-1)))
}

// GJK tests whether the Minkowski difference of two convex shapes
// contains the origin, i.e. whether the shapes overlap. initialDir
// seeds the first support query; narrowphase passes body-center
// separation, the same optimization the teacher's GJK used.
func GJK(a, b Support, initialDir mgl64.Vec3, simplex *Simplex) bool {
	direction := initialDir
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.Points[0] = MinkowskiSupport(a, b, direction)
	simplex.Count = 1

	direction = simplex.Points[0].Mul(-1)
	if direction.LenSqr() < 1e-16 {
		return true
	}

	const maxIterations = 32
	for i := 0; i < maxIterations; i++ {
		newPoint := MinkowskiSupport(a, b, direction)
		if newPoint.Dot(direction) <= 0 {
			return false
		}

		simplex.Points[simplex.Count] = newPoint
		simplex.Count++

		if containsOrigin(simplex, &direction) {
			return true
		}
	}

	return false
}

func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true
		}
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	if ab.Dot(ao) <= 0 {
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	abPerp := ab.Cross(ao).Cross(ab)
	if abPerp.LenSqr() < 1e-8 {
		return true
	}

	*direction = abPerp
	return false
}

func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2]
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)

	abc := ab.Cross(ac)

	if abc.LenSqr() < 1e-10 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		return line(simplex, direction)
	}

	abPerp := ab.Cross(abc)
	if abPerp.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	acPerp := abc.Cross(ac)
	if acPerp.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = a
		simplex.Count = 2
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	if abc.Dot(ao) > 0 {
		*direction = abc
	} else {
		simplex.Points[0] = a
		simplex.Points[1] = c
		simplex.Points[2] = b
		simplex.Count = 3
		*direction = abc.Mul(-1)
	}

	return false
}

func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3]
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	abc := ab.Cross(ac)
	if abc.Dot(ad) > 0 {
		abc = abc.Mul(-1)
	}

	acd := ac.Cross(ad)
	if acd.Dot(ab) > 0 {
		acd = acd.Mul(-1)
	}

	adb := ad.Cross(ab)
	if adb.Dot(ac) > 0 {
		adb = adb.Mul(-1)
	}

	if abc.LenSqr() < 1e-10 || acd.LenSqr() < 1e-10 || adb.LenSqr() < 1e-10 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if abc.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if acd.Dot(ao) > 0 {
		simplex.Points[0] = d
		simplex.Points[1] = c
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if adb.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = d
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	return true
}
