// Package body holds the rigid-body data model: transforms, AABBs, shape
// variants, mass properties, and the construction builder spec.md §6
// describes.
package body

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and orientation in world space.
// InverseRotation is cached alongside Rotation since both the narrowphase
// and the solver need the inverse every step; recomputing it lazily would
// just move the cost, not remove it.
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// Normalize re-normalizes Rotation and refreshes InverseRotation. Called
// once per step per body so orientation stays a unit quaternion within
// the 1e-5 bound spec.md §8 requires.
func (t *Transform) Normalize() {
	t.Rotation = t.Rotation.Normalize()
	t.InverseRotation = t.Rotation.Inverse()
}

// TransformPoint maps a local-space point into world space.
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(p))
}

// InverseTransformPoint maps a world-space point into local space.
func (t Transform) InverseTransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(p.Sub(t.Position))
}

// TransformDirection rotates a local-space direction into world space.
func (t Transform) TransformDirection(d mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(d)
}
