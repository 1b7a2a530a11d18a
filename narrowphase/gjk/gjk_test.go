package gjk

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func sphereSupport(center mgl64.Vec3, radius float64) Support {
	return func(direction mgl64.Vec3) mgl64.Vec3 {
		if direction.LenSqr() < 1e-16 {
			return center
		}
		return center.Add(direction.Normalize().Mul(radius))
	}
}

func TestGJKDetectsOverlappingSpheres(t *testing.T) {
	a := sphereSupport(mgl64.Vec3{0, 0, 0}, 1)
	b := sphereSupport(mgl64.Vec3{1, 0, 0}, 1)

	var simplex Simplex
	if !GJK(a, b, mgl64.Vec3{1, 0, 0}, &simplex) {
		t.Fatalf("expected overlapping spheres to be detected as colliding")
	}
}

func TestGJKRejectsSeparatedSpheres(t *testing.T) {
	a := sphereSupport(mgl64.Vec3{0, 0, 0}, 1)
	b := sphereSupport(mgl64.Vec3{10, 0, 0}, 1)

	var simplex Simplex
	if GJK(a, b, mgl64.Vec3{1, 0, 0}, &simplex) {
		t.Fatalf("expected far-apart spheres to be reported as separated")
	}
}

func TestGJKDetectsOverlappingBoxes(t *testing.T) {
	boxSupport := func(center, half mgl64.Vec3) Support {
		return func(direction mgl64.Vec3) mgl64.Vec3 {
			sign := func(c float64) float64 {
				if c < 0 {
					return -1
				}
				return 1
			}
			return mgl64.Vec3{
				center.X() + sign(direction.X())*half.X(),
				center.Y() + sign(direction.Y())*half.Y(),
				center.Z() + sign(direction.Z())*half.Z(),
			}
		}
	}

	a := boxSupport(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := boxSupport(mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1})

	var simplex Simplex
	if !GJK(a, b, mgl64.Vec3{1, 0, 0}, &simplex) {
		t.Fatalf("expected overlapping boxes to be detected as colliding")
	}
}
