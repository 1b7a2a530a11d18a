package epa

import (
	"math"
	"testing"

	"github.com/quillphysics/quill/narrowphase/gjk"

	"github.com/go-gl/mathgl/mgl64"
)

func sphereSupport(center mgl64.Vec3, radius float64) gjk.Support {
	return func(direction mgl64.Vec3) mgl64.Vec3 {
		if direction.LenSqr() < 1e-16 {
			return center
		}
		return center.Add(direction.Normalize().Mul(radius))
	}
}

func TestRunReturnsPenetrationDepthForOverlappingSpheres(t *testing.T) {
	a := sphereSupport(mgl64.Vec3{0, 0, 0}, 1)
	b := sphereSupport(mgl64.Vec3{1.5, 0, 0}, 1)

	var simplex gjk.Simplex
	if !gjk.GJK(a, b, mgl64.Vec3{1, 0, 0}, &simplex) {
		t.Fatalf("setup: expected spheres to overlap")
	}

	result := Run(a, b, &simplex)
	wantDepth := 0.5
	if math.Abs(result.Distance-wantDepth) > 0.1 {
		t.Fatalf("expected penetration depth near %f, got %f", wantDepth, result.Distance)
	}
	if result.Normal.Len() < 0.99 || result.Normal.Len() > 1.01 {
		t.Fatalf("expected unit normal, got length %f", result.Normal.Len())
	}
}

func TestRunHandlesDegenerateSimplexWithoutPanicking(t *testing.T) {
	a := sphereSupport(mgl64.Vec3{0, 0, 0}, 1)
	b := sphereSupport(mgl64.Vec3{0, 0, 0}, 1)

	simplex := &gjk.Simplex{Count: 1}
	simplex.Points[0] = mgl64.Vec3{0.01, 0, 0}

	result := Run(a, b, simplex)
	if result.Distance < 0 {
		t.Fatalf("expected non-negative penetration estimate, got %f", result.Distance)
	}
}
