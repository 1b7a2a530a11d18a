package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind determines how a body participates in simulation. Dynamic bodies
// are integrated and collide with everything; Kinematic bodies are
// driven externally (their velocity is set by a caller, never by the
// solver) but still push dynamics around; Static bodies never move and
// never accumulate forces. spec.md describes Dynamic/Static explicitly
// and calls for Kinematic as a third kind the engine must support for
// platform/mover objects that are not influenced by gravity or impulses.
type Kind int

const (
	Dynamic Kind = iota
	Kinematic
	Static
)

// Spin is the extra angular degree of freedom tire/wheel shapes rotate
// through independent of the body's general angular velocity. Turns
// counts whole revolutions so the value never loses precision over a
// long-running simulation; Residual is the fractional remainder in
// [0, 2π); SpinVelocity is the rate Residual advances by per second.
// Carried only on bodies built with Builder.Spin.
type Spin struct {
	Turns        int64
	Residual     float64
	SpinVelocity float64
}

// CollisionFilter gates which pairs the broadphase ever hands to the
// narrowphase. Two shapes collide only if each one's Group is present
// in the other's Mask.
type CollisionFilter struct {
	Group uint32
	Mask  uint32
}

// DefaultFilter collides with everything.
func DefaultFilter() CollisionFilter {
	return CollisionFilter{Group: 1, Mask: 0xFFFFFFFF}
}

func (f CollisionFilter) CanCollideWith(o CollisionFilter) bool {
	return f.Group&o.Mask != 0 && o.Group&f.Mask != 0
}

// RigidBody is the per-entity physical state. HasMaterial false means
// sensor (see Material's doc comment); Kind determines integration and
// solver participation.
type RigidBody struct {
	Kind Kind

	Transform Transform
	Shape     Shape
	Material  Material
	HasMaterial bool

	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3

	Mass        float64
	InverseMass float64
	Inertia     mgl64.Mat3
	InverseInertia mgl64.Mat3

	Spin    Spin
	HasSpin bool

	Filter CollisionFilter

	Tag string

	// SleepDisabled vetoes the island manager from ever putting this
	// body's island to sleep, per spec.md's island sleeping section.
	SleepDisabled bool
	Sleeping      bool
	SleepTimer    float64

	// PreviousTransform is the last step's Transform, kept for
	// interpolated presentation state between fixed steps.
	PreviousTransform Transform
}

// NewRigidBody builds a body of the given kind with sane zero state;
// use Builder for everything beyond the kind/shape/transform triple.
func NewRigidBody(kind Kind, shape Shape, transform Transform) *RigidBody {
	rb := &RigidBody{
		Kind:               kind,
		Transform:          transform,
		PreviousTransform:  transform,
		Shape:              shape,
		Filter:             DefaultFilter(),
		Inertia:            mgl64.Mat3{},
		InverseInertia:     mgl64.Mat3{},
	}
	rb.RecomputeMass(1.0)
	return rb
}

// RecomputeMass derives Mass/InverseMass/Inertia/InverseInertia from the
// shape at the given density. Static and Kinematic bodies always carry
// infinite mass (zero inverse), per spec.md §3's invariant that neither
// kind is ever pushed by the solver.
func (rb *RigidBody) RecomputeMass(density float64) {
	if rb.Kind != Dynamic || rb.Shape == nil {
		rb.Mass = math.Inf(1)
		rb.InverseMass = 0
		rb.Inertia = mgl64.Mat3{}
		rb.InverseInertia = mgl64.Mat3{}
		return
	}

	mass := rb.Shape.ComputeMass(density)
	if mass <= 0 || math.IsInf(mass, 1) {
		rb.Mass = math.Inf(1)
		rb.InverseMass = 0
		rb.Inertia = mgl64.Mat3{}
		rb.InverseInertia = mgl64.Mat3{}
		return
	}

	rb.Mass = mass
	rb.InverseMass = 1.0 / mass
	rb.Inertia = rb.Shape.ComputeInertia(mass)
	rb.InverseInertia = invertDiagonalish(rb.Inertia)
}

// invertDiagonalish inverts a symmetric positive-definite 3x3 inertia
// tensor with a general inverse, returning the zero matrix when the
// tensor is singular. Most shapes in this package return a diagonal
// tensor in their own local frame; Compound adds off-diagonal
// parallel-axis terms, which the general inverse also covers.
func invertDiagonalish(m mgl64.Mat3) mgl64.Mat3 {
	det := m.Det()
	if math.Abs(det) < 1e-12 {
		return mgl64.Mat3{}
	}
	return m.Inv()
}

// WorldInverseInertia rotates InverseInertia into world space: R * I^-1 * R^T.
func (rb *RigidBody) WorldInverseInertia() mgl64.Mat3 {
	r := rb.Transform.Rotation.Mat4().Mat3()
	return r.Mul3(rb.InverseInertia).Mul3(r.Transpose())
}

// IsSensor reports whether this body participates in collision-event
// reporting without ever receiving solver contact rows.
func (rb *RigidBody) IsSensor() bool {
	return !rb.HasMaterial
}

// Wake clears Sleeping and resets SleepTimer; called whenever an island
// this body belongs to is disturbed.
func (rb *RigidBody) Wake() {
	rb.Sleeping = false
	rb.SleepTimer = 0
}

// Integrate applies gravity and advances position/orientation by one
// substep of semi-implicit Euler: velocity is updated from acceleration
// first, then position from the new velocity, the same order as the
// teacher's actor.RigidBody.Integrate. Static bodies and sleeping bodies
// never move; Kinematic bodies keep their caller-assigned velocity and
// only integrate position.
func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	if rb.Kind == Static || rb.Sleeping {
		return
	}

	rb.PreviousTransform = rb.Transform

	if rb.Kind == Dynamic {
		rb.LinearVelocity = rb.LinearVelocity.Add(gravity.Mul(dt))
	}

	rb.Transform.Position = rb.Transform.Position.Add(rb.LinearVelocity.Mul(dt))

	omega := mgl64.Quat{W: 0, V: rb.AngularVelocity}
	qDot := omega.Mul(rb.Transform.Rotation)
	rb.Transform.Rotation = mgl64.Quat{
		W: rb.Transform.Rotation.W + 0.5*dt*qDot.W,
		V: rb.Transform.Rotation.V.Add(qDot.V.Mul(0.5 * dt)),
	}
	rb.Transform.Normalize()

	if rb.HasSpin {
		rb.Spin.Residual += rb.Spin.SpinVelocity * dt
		for rb.Spin.Residual >= 2*math.Pi {
			rb.Spin.Residual -= 2 * math.Pi
			rb.Spin.Turns++
		}
		for rb.Spin.Residual < 0 {
			rb.Spin.Residual += 2 * math.Pi
			rb.Spin.Turns--
		}
	}
}

// ApplyImpulse updates linear and angular velocity from an impulse
// applied at a world-space point, the inverse-mass/inverse-inertia
// scaling every PGS row application performs (solver package).
func (rb *RigidBody) ApplyImpulse(impulse, worldPoint mgl64.Vec3) {
	if rb.Kind != Dynamic {
		return
	}
	rb.LinearVelocity = rb.LinearVelocity.Add(impulse.Mul(rb.InverseMass))
	r := worldPoint.Sub(rb.Transform.Position)
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.WorldInverseInertia().Mul3x1(r.Cross(impulse)))
}
