package body

import "github.com/go-gl/mathgl/mgl64"

// Builder accumulates rigid-body construction parameters with sane
// defaults, mirroring the teacher's fluent actor builder. Build panics
// if Shape was never set -- every body needs one, sensors included.
type Builder struct {
	kind     Kind
	position mgl64.Vec3
	rotation mgl64.Quat
	shape    Shape
	material Material
	hasMaterial bool
	density  float64
	filter   CollisionFilter
	tag      string
	spin     Spin
	hasSpin  bool
	sleepDisabled bool
	linearVelocity  mgl64.Vec3
	angularVelocity mgl64.Vec3
}

func NewBuilder() *Builder {
	return &Builder{
		kind:     Dynamic,
		rotation: mgl64.QuatIdent(),
		density:  1.0,
		filter:   DefaultFilter(),
	}
}

func (b *Builder) Kind(k Kind) *Builder { b.kind = k; return b }

func (b *Builder) Position(p mgl64.Vec3) *Builder { b.position = p; return b }

func (b *Builder) Rotation(r mgl64.Quat) *Builder { b.rotation = r; return b }

func (b *Builder) Shape(s Shape) *Builder { b.shape = s; return b }

func (b *Builder) Material(m Material) *Builder { b.material = m; b.hasMaterial = true; return b }

func (b *Builder) Density(d float64) *Builder { b.density = d; return b }

func (b *Builder) Filter(f CollisionFilter) *Builder { b.filter = f; return b }

func (b *Builder) Tag(t string) *Builder { b.tag = t; return b }

func (b *Builder) Spin(velocity float64) *Builder {
	b.spin = Spin{SpinVelocity: velocity}
	b.hasSpin = true
	return b
}

func (b *Builder) SleepDisabled(disabled bool) *Builder { b.sleepDisabled = disabled; return b }

func (b *Builder) LinearVelocity(v mgl64.Vec3) *Builder { b.linearVelocity = v; return b }

func (b *Builder) AngularVelocity(v mgl64.Vec3) *Builder { b.angularVelocity = v; return b }

// Build constructs the RigidBody, deriving mass properties from Shape
// and Density. Panics if Shape is nil -- this mirrors the teacher's
// fail-fast construction rather than silently building an inert body.
func (b *Builder) Build() *RigidBody {
	if b.shape == nil {
		panic("body: Builder.Build called without a Shape")
	}

	rot := b.rotation.Normalize()
	transform := Transform{
		Position:        b.position,
		Rotation:        rot,
		InverseRotation: rot.Inverse(),
	}

	rb := &RigidBody{
		Kind:              b.kind,
		Transform:         transform,
		PreviousTransform: transform,
		Shape:             b.shape,
		Material:          b.material,
		HasMaterial:       b.hasMaterial,
		LinearVelocity:    b.linearVelocity,
		AngularVelocity:   b.angularVelocity,
		Spin:              b.spin,
		HasSpin:           b.hasSpin,
		Filter:            b.filter,
		Tag:               b.tag,
		SleepDisabled:     b.sleepDisabled,
	}
	rb.RecomputeMass(b.density)
	return rb
}
