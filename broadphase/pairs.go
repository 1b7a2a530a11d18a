package broadphase

import (
	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/entity"
)

// Pair is an unordered body pair, normalized so the smaller handle
// index always sits in A -- the tie-break policy spec.md §4.2 calls
// for so pair order never causes duplicate map entries.
type Pair struct {
	A, B entity.Handle
}

func makePair(a, b entity.Handle) Pair {
	if less(b, a) {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// MakePair normalizes a and b into the same canonical order Phase uses
// internally, so callers outside this package (package coordinator's
// pair-exclusion bookkeeping) can build a Pair that compares equal to
// whatever Phase tracked for the same two handles.
func MakePair(a, b entity.Handle) Pair { return makePair(a, b) }

func less(a, b entity.Handle) bool {
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	return a.Generation < b.Generation
}

// PairSet answers "does a manifold already exist for this unordered
// pair" in O(1), per spec.md §4.2's pair-existence map.
type PairSet struct {
	existing map[Pair]entity.Handle // pair -> manifold edge handle
}

func NewPairSet() *PairSet {
	return &PairSet{existing: make(map[Pair]entity.Handle)}
}

func (s *PairSet) Exists(a, b entity.Handle) bool {
	_, ok := s.existing[makePair(a, b)]
	return ok
}

func (s *PairSet) Manifold(a, b entity.Handle) (entity.Handle, bool) {
	m, ok := s.existing[makePair(a, b)]
	return m, ok
}

func (s *PairSet) Insert(a, b entity.Handle, manifoldEdge entity.Handle) {
	s.existing[makePair(a, b)] = manifoldEdge
}

func (s *PairSet) Remove(a, b entity.Handle) {
	delete(s.existing, makePair(a, b))
}

// All returns every currently tracked pair, in no particular order.
func (s *PairSet) All() []Pair {
	out := make([]Pair, 0, len(s.existing))
	for p := range s.existing {
		out = append(out, p)
	}
	return out
}

// Phase runs the two dynamic AABB trees and the pair map described in
// spec.md §4.2. The dynamic tree is refitted every step; the static
// tree only when a static/kinematic body's transform actually changed.
type Phase struct {
	Dynamic *Tree
	Static  *Tree
	Pairs   *PairSet
}

func NewPhase(margin float64) *Phase {
	return &Phase{
		Dynamic: NewTree(margin),
		Static:  NewTree(margin),
		Pairs:   NewPairSet(),
	}
}

// BodyLookup resolves a handle to its current rigid body state; the
// caller (package quill) owns storage, broadphase only borrows it.
type BodyLookup func(entity.Handle) (*body.RigidBody, bool)

// NewPairFunc is invoked once per newly discovered, accepted pair; the
// caller creates the manifold entity/edge and returns its handle so the
// pair map can record it.
type NewPairFunc func(a, b entity.Handle) entity.Handle

// Step performs one broadphase pass: refit moved bodies (step 1), then
// for each dynamic leaf query both trees with the leaf inflated by
// breakingThreshold and create manifold edges for newly accepted pairs
// (step 2). Manifold destruction is never performed here -- narrowphase
// owns that, per spec.md §4.2 step 3.
func (p *Phase) Step(handles []entity.Handle, lookup BodyLookup, breakingThreshold float64, onNewPair NewPairFunc) {
	for _, h := range handles {
		rb, ok := lookup(h)
		if !ok {
			continue
		}
		tight := rb.Shape.ComputeAABB(rb.Transform)
		if rb.Kind == body.Dynamic {
			p.Dynamic.Refit(h, tight)
		} else {
			p.Static.Refit(h, tight)
		}
	}

	for _, h := range handles {
		rbA, ok := lookup(h)
		if !ok || rbA.Kind != body.Dynamic {
			continue
		}
		tight := rbA.Shape.ComputeAABB(rbA.Transform)
		query := tight.Inflate(breakingThreshold)

		visit := func(other entity.Handle) {
			if other == h {
				return
			}
			rbB, ok := lookup(other)
			if !ok {
				return
			}
			if !rbA.Filter.CanCollideWith(rbB.Filter) {
				return
			}
			if p.Pairs.Exists(h, other) {
				return
			}
			edge := onNewPair(h, other)
			p.Pairs.Insert(h, other, edge)
		}

		p.Dynamic.Query(query, visit)
		p.Static.Query(query, visit)
	}
}

// Remove drops handle from whichever tree holds it and clears any pairs
// referencing it, used when a body is destroyed.
func (p *Phase) Remove(h entity.Handle) {
	p.Dynamic.Remove(h)
	p.Static.Remove(h)
	for pair := range p.Pairs.existing {
		if pair.A == h || pair.B == h {
			delete(p.Pairs.existing, pair)
		}
	}
}
