package body

import "github.com/go-gl/mathgl/mgl64"

// AABB is a world-space axis-aligned bounding box.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContactBreakingThreshold is the default margin an AABB is inflated by
// so a broadphase query against the inflated box keeps seeing a pair
// through the narrowphase's speculative-contact window, per spec.md §3
// and the GLOSSARY entry for "contact-breaking threshold".
const ContactBreakingThreshold = 0.02

// Inflate returns a copy of a expanded by margin on every axis.
func (a AABB) Inflate(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

func (a AABB) ContainsPoint(p mgl64.Vec3) bool {
	return p.X() >= a.Min.X() && p.X() <= a.Max.X() &&
		p.Y() >= a.Min.Y() && p.Y() <= a.Max.Y() &&
		p.Z() >= a.Min.Z() && p.Z() <= a.Max.Z()
}

func (a AABB) Overlaps(o AABB) bool {
	return a.Max.X() >= o.Min.X() && a.Min.X() <= o.Max.X() &&
		a.Max.Y() >= o.Min.Y() && a.Min.Y() <= o.Max.Y() &&
		a.Max.Z() >= o.Min.Z() && a.Min.Z() <= o.Max.Z()
}

// Contains reports whether a fully encloses o, used by the broadphase
// tree to decide whether a refit needs a re-insert.
func (a AABB) Contains(o AABB) bool {
	return a.Min.X() <= o.Min.X() && a.Max.X() >= o.Max.X() &&
		a.Min.Y() <= o.Min.Y() && a.Max.Y() >= o.Max.Y() &&
		a.Min.Z() <= o.Min.Z() && a.Max.Z() >= o.Max.Z()
}

// Union returns the smallest AABB enclosing both a and o.
func (a AABB) Union(o AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{min3(a.Min.X(), o.Min.X()), min3(a.Min.Y(), o.Min.Y()), min3(a.Min.Z(), o.Min.Z())},
		Max: mgl64.Vec3{max3(a.Max.X(), o.Max.X()), max3(a.Max.Y(), o.Max.Y()), max3(a.Max.Z(), o.Max.Z())},
	}
}

// Surface area, used by the AABB tree's insertion cost heuristic.
func (a AABB) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2 * (d.X()*d.Y() + d.Y()*d.Z() + d.Z()*d.X())
}

func min3(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max3(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
