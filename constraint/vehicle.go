package constraint

import (
	"github.com/quillphysics/quill/body"

	"github.com/go-gl/mathgl/mgl64"
)

// AntiRollBar couples the suspension travel of two wheels on the same
// axle with a single row on the wheels' vertical velocities, pushing the
// higher wheel down and the lower one up in proportion to their height
// difference, spec.md §4.4's vehicle joint family. The row acts on
// WheelA and WheelB only: Chassis, LocalAnchorA and LocalAnchorB are not
// read by Prepare, and no torque is applied to the chassis.
type AntiRollBar struct {
	Chassis        *body.RigidBody
	WheelA, WheelB *body.RigidBody
	LocalAnchorA   mgl64.Vec3
	LocalAnchorB   mgl64.Vec3
	Stiffness      float64

	impulse float64
}

func (j *AntiRollBar) Prepare(dt float64) []Row {
	a, b := j.WheelA, j.WheelB
	worldA := a.Transform.Position
	worldB := b.Transform.Position

	travel := worldB.Sub(worldA).Y()
	axis := mgl64.Vec3{0, 1, 0}

	effMass := jacobianEffectiveMass(axis, mgl64.Vec3{}, axis.Mul(-1), mgl64.Vec3{}, a, b)
	return []Row{{
		BodyA: a, BodyB: b,
		JLinA: axis, JLinB: axis.Mul(-1),
		EffectiveMass: effMass,
		RHS:           j.Stiffness * travel * dt * effMass,
		Lower:         -infinity, Upper: infinity,
		Persist: &j.impulse,
	}}
}

func (j *AntiRollBar) PositionCorrect(dt float64) {}

// DoubleWishbone constrains a wheel carrier to travel on the arc a
// double-wishbone suspension sweeps: approximated as a point-to-point
// anchor from the carrier to the virtual instant-center the two
// wishbone arms pivot around, reusing PointToPoint's rows rather than
// deriving a bespoke two-arm Jacobian.
type DoubleWishbone struct {
	point *PointToPoint
}

func NewDoubleWishbone(chassis, carrier *body.RigidBody, instantCenterOnChassis, anchorOnCarrier mgl64.Vec3) *DoubleWishbone {
	return &DoubleWishbone{point: NewPointToPoint(chassis, carrier, instantCenterOnChassis, anchorOnCarrier)}
}

func (j *DoubleWishbone) Prepare(dt float64) []Row   { return j.point.Prepare(dt) }
func (j *DoubleWishbone) PositionCorrect(dt float64) { j.point.PositionCorrect(dt) }

// TieRod is a rigid Distance joint between the steering rack and the
// wheel carrier's steering arm.
type TieRod struct {
	distance *Distance
}

func NewTieRod(rack, carrier *body.RigidBody, anchorOnRack, anchorOnCarrier mgl64.Vec3, length float64) *TieRod {
	return &TieRod{distance: &Distance{BodyA: rack, BodyB: carrier, LocalAnchorA: anchorOnRack, LocalAnchorB: anchorOnCarrier, RestLength: length}}
}

func (j *TieRod) Prepare(dt float64) []Row   { return j.distance.Prepare(dt) }
func (j *TieRod) PositionCorrect(dt float64) { j.distance.PositionCorrect(dt) }

// Differential couples two wheel spin DoFs with a ratio determined by
// an optional carrier (third) spin input, modelling an open
// differential's speed-averaging constraint: ωA + ωB = 2·ωCarrier.
type Differential struct {
	WheelA, WheelB, Carrier *body.RigidBody

	impulse float64
}

func (d *Differential) Prepare(dt float64) []Row {
	a, b := d.WheelA, d.WheelB
	if !a.HasSpin || !b.HasSpin {
		return nil
	}

	carrierRate := 0.0
	if d.Carrier != nil && d.Carrier.HasSpin {
		carrierRate = d.Carrier.Spin.SpinVelocity
	}
	err := a.Spin.SpinVelocity + b.Spin.SpinVelocity - 2*carrierRate

	return []Row{{
		BodyA: a, BodyB: b,
		JAngA: mgl64.Vec3{1, 0, 0}, JAngB: mgl64.Vec3{1, 0, 0},
		EffectiveMass: 1.0 / (a.InverseMass + b.InverseMass + 1e-9),
		RHS:           -DefaultERP * err,
		Lower:         -infinity, Upper: infinity,
		Persist: &d.impulse,
		SpinA:   true, SpinB: true,
	}}
}

func (d *Differential) PositionCorrect(dt float64) {}

// TireCarcassSpring is a soft Distance joint between a tire tread
// contact point and the wheel's rigid carcass center, giving the tire
// its radial compliance.
type TireCarcassSpring struct {
	distance *Distance
}

func NewTireCarcassSpring(tread, carcass *body.RigidBody, anchorOnTread, anchorOnCarcass mgl64.Vec3, restLength, stiffness, damping float64) *TireCarcassSpring {
	return &TireCarcassSpring{distance: &Distance{
		BodyA: tread, BodyB: carcass,
		LocalAnchorA: anchorOnTread, LocalAnchorB: anchorOnCarcass,
		RestLength: restLength, Stiffness: stiffness, Damping: damping,
	}}
}

func (j *TireCarcassSpring) Prepare(dt float64) []Row   { return j.distance.Prepare(dt) }
func (j *TireCarcassSpring) PositionCorrect(dt float64) { j.distance.PositionCorrect(dt) }

// SpringDamper is the general-purpose soft joint spec.md §4.4 lists
// alongside the rigid distance joint: identical math to Distance with
// Stiffness/Damping set, kept as its own named type so callers express
// intent without setting Stiffness on a nominally "rigid" joint.
type SpringDamper struct {
	distance *Distance
}

func NewSpringDamper(a, b *body.RigidBody, anchorA, anchorB mgl64.Vec3, restLength, stiffness, damping float64) *SpringDamper {
	return &SpringDamper{distance: &Distance{
		BodyA: a, BodyB: b,
		LocalAnchorA: anchorA, LocalAnchorB: anchorB,
		RestLength: restLength, Stiffness: stiffness, Damping: damping,
	}}
}

func (j *SpringDamper) Prepare(dt float64) []Row   { return j.distance.Prepare(dt) }
func (j *SpringDamper) PositionCorrect(dt float64) {}

// SpinEquality locks two bodies' scalar spin rates to be equal (a
// shared axle without a differential).
type SpinEquality struct {
	BodyA, BodyB *body.RigidBody
	impulse      float64
}

func (s *SpinEquality) Prepare(dt float64) []Row {
	a, b := s.BodyA, s.BodyB
	if !a.HasSpin || !b.HasSpin {
		return nil
	}
	err := a.Spin.SpinVelocity - b.Spin.SpinVelocity
	return []Row{{
		BodyA: a, BodyB: b,
		JAngA: mgl64.Vec3{1, 0, 0}, JAngB: mgl64.Vec3{-1, 0, 0},
		EffectiveMass: 1.0 / (a.InverseMass + b.InverseMass + 1e-9),
		RHS:           -DefaultERP * err,
		Lower:         -infinity, Upper: infinity,
		Persist: &s.impulse,
		SpinA:   true, SpinB: true,
	}}
}

func (s *SpinEquality) PositionCorrect(dt float64) {}

// TripleSpinGear couples three spin DoFs by fixed gear ratios relative
// to a driving body, e.g. a transfer case splitting engine spin
// between front/rear outputs: ωOutputA = RatioA·ωDrive,
// ωOutputB = RatioB·ωDrive.
type TripleSpinGear struct {
	Drive, OutputA, OutputB *body.RigidBody
	RatioA, RatioB          float64

	impulseA, impulseB float64
}

func (g *TripleSpinGear) Prepare(dt float64) []Row {
	if !g.Drive.HasSpin {
		return nil
	}

	var rows []Row
	if g.OutputA != nil && g.OutputA.HasSpin {
		rows = append(rows, g.gearRow(g.OutputA, g.RatioA, &g.impulseA))
	}
	if g.OutputB != nil && g.OutputB.HasSpin {
		rows = append(rows, g.gearRow(g.OutputB, g.RatioB, &g.impulseB))
	}
	return rows
}

func (g *TripleSpinGear) gearRow(output *body.RigidBody, ratio float64, persist *float64) Row {
	drive := g.Drive
	err := output.Spin.SpinVelocity - ratio*drive.Spin.SpinVelocity
	return Row{
		BodyA: drive, BodyB: output,
		JAngA: mgl64.Vec3{-ratio, 0, 0}, JAngB: mgl64.Vec3{1, 0, 0},
		EffectiveMass: 1.0 / (drive.InverseMass + output.InverseMass + 1e-9),
		RHS:           -DefaultERP * err,
		Lower:         -infinity, Upper: infinity,
		Persist: persist,
		SpinA:   true, SpinB: true,
	}
}

func (g *TripleSpinGear) PositionCorrect(dt float64) {}
