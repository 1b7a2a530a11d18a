package narrowphase

import (
	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/entity"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyLookup resolves a live handle to its rigid body, mirroring
// broadphase.BodyLookup so callers can share one lookup closure across
// both phases.
type BodyLookup func(entity.Handle) (*body.RigidBody, bool)

// MixFunc mixes two materials at a contact point; callers normally
// pass a materials.MixTable's Mix method so per-pair overrides apply.
type MixFunc func(a, b body.Material) body.Material

// Manifolds owns the set of persistent manifolds keyed by normalized
// pair, created and destroyed as the broadphase reports pairs
// appearing and disappearing.
type Manifolds struct {
	byPair map[pairKey]*Manifold
}

type pairKey struct {
	a, b entity.Handle
}

func makePairKey(a, b entity.Handle) pairKey {
	if less(b, a) {
		a, b = b, a
	}
	return pairKey{a, b}
}

func less(a, b entity.Handle) bool {
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	return a.Generation < b.Generation
}

func NewManifolds() *Manifolds {
	return &Manifolds{byPair: make(map[pairKey]*Manifold)}
}

// Get returns the existing manifold for a pair, creating one if this
// is the pair's first step as a broadphase overlap.
func (m *Manifolds) Get(a, b entity.Handle) *Manifold {
	key := makePairKey(a, b)
	mf, ok := m.byPair[key]
	if !ok {
		mf = NewManifold(a, b)
		m.byPair[key] = mf
	}
	return mf
}

// Remove drops a manifold when the broadphase reports the pair no
// longer overlapping, or when either body is destroyed.
func (m *Manifolds) Remove(a, b entity.Handle) {
	delete(m.byPair, makePairKey(a, b))
}

// Find returns the manifold for a pair if one currently exists,
// without creating it.
func (m *Manifolds) Find(a, b entity.Handle) (*Manifold, bool) {
	mf, ok := m.byPair[makePairKey(a, b)]
	return mf, ok
}

// Step updates every manifold named by pairs: it regenerates
// candidates for each pair, merges/retires/replaces points, mixes
// materials, and drops manifolds whose bodies no longer overlap
// (GenerateCandidates returns no candidates and no existing points
// survive retirement). spec.md §4.3's preamble allows per-pair work
// to run independently; callers that want it parallel can shard pairs
// across goroutines since each pair only touches its own Manifold.
func (m *Manifolds) Step(pairs []Pair, lookup BodyLookup, mix MixFunc) {
	live := make(map[pairKey]bool, len(pairs))

	for _, pr := range pairs {
		if _, ok := lookup(pr.A); !ok {
			continue
		}
		if _, ok := lookup(pr.B); !ok {
			continue
		}

		key := makePairKey(pr.A, pr.B)
		live[key] = true

		mf := m.Get(pr.A, pr.B)
		// Manifold.A/B were fixed when first created; always evaluate
		// candidates and recompute separation in that fixed order so
		// stored LocalA/LocalB pivots stay consistent across steps.
		bodyA, okA := lookup(mf.A)
		bodyB, okB := lookup(mf.B)
		if !okA || !okB {
			continue
		}

		mf.RecomputeSeparation(bodyA, bodyB)

		candidates := GenerateCandidates(bodyA, bodyB)

		spinAxis := mgl64.Vec3{0, 1, 0}
		if bodyA.HasSpin {
			spinAxis = bodyA.Transform.Rotation.Rotate(mgl64.Vec3{0, 1, 0})
		}
		mf.IsTire = bodyA.HasSpin || bodyB.HasSpin

		mf.Update(bodyA, bodyB, candidates, mix, spinAxis)

		if len(mf.Points) == 0 {
			delete(m.byPair, key)
		}
	}

	for key := range m.byPair {
		if !live[key] {
			delete(m.byPair, key)
		}
	}
}

// Pair names a broadphase-reported overlapping pair; mirrors
// broadphase.Pair so callers can pass that package's pair list
// directly without a conversion step.
type Pair struct {
	A, B entity.Handle
}
