package narrowphase

import (
	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/narrowphase/epa"
	"github.com/quillphysics/quill/narrowphase/gjk"

	"github.com/go-gl/mathgl/mgl64"
)

// GenerateCandidates is the closest-features dispatch of spec.md §4.3
// step 2: a two-level visitor over the shape variants of A and B.
// body.Plane is the one shape kind with an analytic closest-feature
// routine (the teacher's collidePlane path); every other pairing,
// including Compound (which recurses per struck child via its own
// Support/ContactFeature), goes through the generic GJK/EPA convex
// pipeline, which is the canonical pair every symmetric combination
// ultimately reduces to.
func GenerateCandidates(a, b *body.RigidBody) []Candidate {
	planeA, aIsPlane := a.Shape.(*body.Plane)
	planeB, bIsPlane := b.Shape.(*body.Plane)

	switch {
	case aIsPlane && bIsPlane:
		return nil // two infinite planes never usefully collide
	case aIsPlane:
		return candidatesAgainstPlane(planeA, a, b, true)
	case bIsPlane:
		return candidatesAgainstPlane(planeB, b, a, false)
	default:
		return candidatesConvexConvex(a, b)
	}
}

func worldSupport(rb *body.RigidBody) gjk.Support {
	return func(direction mgl64.Vec3) mgl64.Vec3 {
		localDir := rb.Transform.InverseRotation.Rotate(direction)
		localPoint := rb.Shape.Support(localDir)
		return rb.Transform.TransformPoint(localPoint)
	}
}

func candidatesConvexConvex(a, b *body.RigidBody) []Candidate {
	supportA := worldSupport(a)
	supportB := worldSupport(b)

	initialDir := b.Transform.Position.Sub(a.Transform.Position)

	var simplex gjk.Simplex
	if !gjk.GJK(supportA, supportB, initialDir, &simplex) {
		return nil
	}

	result := epa.Run(supportA, supportB, &simplex)
	normal := result.Normal
	depth := result.Distance

	localNormalA := a.Transform.InverseRotation.Rotate(normal)
	localNormalB := b.Transform.InverseRotation.Rotate(normal.Mul(-1))

	featureA := transformFeature(a.Shape.ContactFeature(localNormalA), a.Transform)
	featureB := transformFeature(b.Shape.ContactFeature(localNormalB), b.Transform)

	points := clipFeatures(featureA, featureB, normal)
	if len(points) == 0 {
		points = []mgl64.Vec3{supportB(normal.Mul(-1))}
	}

	candidates := make([]Candidate, 0, len(points))
	for _, p := range points {
		candidates = append(candidates, Candidate{
			WorldA:   p.Add(normal.Mul(depth)),
			WorldB:   p,
			Normal:   normal,
			Distance: -depth,
		})
	}
	return candidates
}

func candidatesAgainstPlane(plane *body.Plane, planeBody, objectBody *body.RigidBody, planeIsA bool) []Candidate {
	planeNormal := planeBody.Transform.TransformDirection(plane.Normal)
	planeOrigin := planeBody.Transform.TransformPoint(plane.Normal.Mul(-plane.Distance))

	towardPlane := planeNormal.Mul(-1)

	localDir := objectBody.Transform.InverseRotation.Rotate(towardPlane)
	feature := transformFeature(objectBody.Shape.ContactFeature(localDir), objectBody.Transform)

	var candidates []Candidate
	for _, p := range feature {
		signedDist := planeNormal.Dot(p.Sub(planeOrigin))
		if signedDist >= 0 {
			continue
		}
		onPlane := p.Sub(planeNormal.Mul(signedDist))

		normal := planeNormal
		worldA, worldB := onPlane, p
		if !planeIsA {
			normal = planeNormal.Mul(-1)
			worldA, worldB = p, onPlane
		}

		candidates = append(candidates, Candidate{
			WorldA:   worldA,
			WorldB:   worldB,
			Normal:   normal,
			Distance: signedDist,
		})
	}
	return candidates
}

func transformFeature(local []mgl64.Vec3, t body.Transform) []mgl64.Vec3 {
	world := make([]mgl64.Vec3, len(local))
	for i, p := range local {
		world[i] = t.TransformPoint(p)
	}
	return world
}
