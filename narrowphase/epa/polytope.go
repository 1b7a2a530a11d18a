// Package epa implements the Expanding Polytope Algorithm for computing
// penetration depth and contact normal once gjk.GJK has proven two
// convex shapes overlap. Adapted from the teacher's epa package: the
// polytope/face machinery is kept nearly verbatim (it is the same
// algorithm regardless of caller), generalized to operate on
// gjk.Support functions instead of *actor.RigidBody so it has no
// dependency on package body. The teacher's epa/face.go duplicated this
// file's Face type as a second, unused definition (dead code even in
// the teacher's own snapshot); this package keeps a single definition.
package epa

import (
	"fmt"
	"math"
	"sync"

	"github.com/quillphysics/quill/narrowphase/gjk"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	MaxIterations           = 32
	ConvergenceTolerance    = 0.001
	MinFaceDistance         = 0.0001
	NormalSnapThreshold     = 1e-8
	DegeneratePenetration   = 0.01
	polytopeInitialCapacity = 4
)

// Face is one triangular face of the expanding polytope, with an
// outward-pointing unit Normal and Distance from the origin along it.
type Face struct {
	Points   [3]mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

type edgeEntry struct {
	A, B  mgl64.Vec3
	Count int
}

// PolytopeBuilder holds the reusable buffers for one EPA run; obtain
// one from the pool per call so consecutive calls don't allocate.
type PolytopeBuilder struct {
	faces          []Face
	uniquePoints   []mgl64.Vec3
	edges          []edgeEntry
	visibleIndices []int
}

var builderPool = sync.Pool{
	New: func() interface{} {
		return &PolytopeBuilder{
			faces:          make([]Face, 0, polytopeInitialCapacity),
			uniquePoints:   make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			edges:          make([]edgeEntry, 0, polytopeInitialCapacity),
			visibleIndices: make([]int, 0, polytopeInitialCapacity),
		}
	},
}

func (b *PolytopeBuilder) Reset() {
	b.faces = b.faces[:0]
	b.uniquePoints = b.uniquePoints[:0]
	b.edges = b.edges[:0]
	b.visibleIndices = b.visibleIndices[:0]
}

// BuildInitialFaces turns a GJK tetrahedron into 4 outward-facing
// triangles.
func (b *PolytopeBuilder) BuildInitialFaces(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return fmt.Errorf("epa: invalid simplex count %d, want 4", simplex.Count)
	}

	p0, p1, p2, p3 := simplex.Points[0], simplex.Points[1], simplex.Points[2], simplex.Points[3]

	candidates := [4]Face{
		b.faceOutward(p0, p1, p2, p3),
		b.faceOutward(p0, p2, p3, p1),
		b.faceOutward(p0, p3, p1, p2),
		b.faceOutward(p1, p3, p2, p0),
	}

	for i := range candidates {
		if candidates[i].Distance >= MinFaceDistance {
			b.faces = append(b.faces, candidates[i])
		}
	}
	if len(b.faces) < 3 {
		b.faces = b.faces[:0]
		b.faces = append(b.faces, candidates[:]...)
	}
	return nil
}

func (b *PolytopeBuilder) faceOutward(p0, p1, p2, opposite mgl64.Vec3) Face {
	var face Face
	face.Points = [3]mgl64.Vec3{p0, p1, p2}

	normal := p1.Sub(p0).Cross(p2.Sub(p0))
	length := normal.Len()
	if length < 1e-8 {
		face.Normal = mgl64.Vec3{0, 1, 0}
		face.Distance = MinFaceDistance
		return face
	}
	normal = normal.Mul(1.0 / length)

	if normal.Dot(opposite.Sub(p0)) > 0 {
		normal = normal.Mul(-1)
	}

	distance := p0.Dot(normal)
	if distance < 0 {
		normal = normal.Mul(-1)
		distance = -distance
	}
	if distance < MinFaceDistance {
		distance = MinFaceDistance
	}

	face.Normal = snapNormal(normal)
	face.Distance = distance
	return face
}

func (b *PolytopeBuilder) FindClosestFaceIndex() int {
	if len(b.faces) == 0 {
		return -1
	}
	idx := 0
	min := b.faces[0].Distance
	for i := 1; i < len(b.faces); i++ {
		if b.faces[i].Distance < min {
			idx, min = i, b.faces[i].Distance
		}
	}
	return idx
}

func (b *PolytopeBuilder) centroid() mgl64.Vec3 {
	b.uniquePoints = b.uniquePoints[:0]
	for i := range b.faces {
		for j := 0; j < 3; j++ {
			p := b.faces[i].Points[j]
			if !containsVec3(b.uniquePoints, p) {
				b.uniquePoints = append(b.uniquePoints, p)
			}
		}
	}
	if len(b.uniquePoints) == 0 {
		return mgl64.Vec3{}
	}
	sum := mgl64.Vec3{}
	for _, p := range b.uniquePoints {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(b.uniquePoints)))
}

func containsVec3(list []mgl64.Vec3, v mgl64.Vec3) bool {
	for _, p := range list {
		if p == v {
			return true
		}
	}
	return false
}

func (b *PolytopeBuilder) findVisibleFaces(support mgl64.Vec3) {
	b.visibleIndices = b.visibleIndices[:0]
	for i := range b.faces {
		if support.Sub(b.faces[i].Points[0]).Dot(b.faces[i].Normal) > 0 {
			b.visibleIndices = append(b.visibleIndices, i)
		}
	}
}

func (b *PolytopeBuilder) findBoundaryEdges() {
	b.edges = b.edges[:0]
	for _, faceIdx := range b.visibleIndices {
		face := &b.faces[faceIdx]
		pairs := [3][2]mgl64.Vec3{
			{face.Points[0], face.Points[1]},
			{face.Points[1], face.Points[2]},
			{face.Points[2], face.Points[0]},
		}
		for _, pair := range pairs {
			a, c := pair[0], pair[1]
			if compareVec3(a, c) > 0 {
				a, c = c, a
			}
			found := false
			for i := range b.edges {
				if b.edges[i].A == a && b.edges[i].B == c {
					b.edges[i].Count++
					found = true
					break
				}
			}
			if !found {
				b.edges = append(b.edges, edgeEntry{A: a, B: c, Count: 1})
			}
		}
	}
}

func (b *PolytopeBuilder) removeVisibleFaces() {
	for i := 0; i < len(b.visibleIndices); i++ {
		for j := i + 1; j < len(b.visibleIndices); j++ {
			if b.visibleIndices[i] < b.visibleIndices[j] {
				b.visibleIndices[i], b.visibleIndices[j] = b.visibleIndices[j], b.visibleIndices[i]
			}
		}
	}
	for _, idx := range b.visibleIndices {
		if idx < len(b.faces) {
			b.faces[idx] = b.faces[len(b.faces)-1]
			b.faces = b.faces[:len(b.faces)-1]
		}
	}
}

func (b *PolytopeBuilder) addBoundaryFaces(support, centroid mgl64.Vec3) {
	for _, edge := range b.edges {
		if edge.Count != 1 {
			continue
		}
		b.faces = append(b.faces, b.faceOutward(edge.A, edge.B, support, centroid))
	}
}

// AddPointAndRebuildFaces expands the polytope toward support: removes
// every face the new point sees, then re-triangulates the resulting
// hole against the boundary edges.
func (b *PolytopeBuilder) AddPointAndRebuildFaces(support mgl64.Vec3, closestIndex int) error {
	centroid := b.centroid()
	b.findVisibleFaces(support)

	if len(b.visibleIndices) >= len(b.faces) {
		b.visibleIndices = b.visibleIndices[:0]
		b.visibleIndices = append(b.visibleIndices, closestIndex)
	}

	b.findBoundaryEdges()
	b.removeVisibleFaces()
	b.addBoundaryFaces(support, centroid)

	if len(b.faces) == 0 {
		b.faces = append(b.faces, Face{
			Points:   [3]mgl64.Vec3{support, support, support},
			Normal:   mgl64.Vec3{0, 1, 0},
			Distance: MinFaceDistance,
		})
	}
	return nil
}

func snapNormal(n mgl64.Vec3) mgl64.Vec3 {
	x, y, z := n.X(), n.Y(), n.Z()
	if math.Abs(x) < NormalSnapThreshold {
		x = 0
	}
	if math.Abs(y) < NormalSnapThreshold {
		y = 0
	}
	if math.Abs(z) < NormalSnapThreshold {
		z = 0
	}
	clamped := mgl64.Vec3{x, y, z}
	length := clamped.Len()
	if length < 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}
	return clamped.Mul(1.0 / length)
}

func compareVec3(a, b mgl64.Vec3) int {
	for i := 0; i < 3; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
