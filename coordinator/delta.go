package coordinator

import (
	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/constraint"
	"github.com/quillphysics/quill/entity"
	"github.com/quillphysics/quill/island"
)

// BodySnapshot is a value copy of the fields a delta ships across the
// coordinator/worker boundary. Never a pointer: the coordinator and a
// worker must never alias the same RigidBody, since each side
// integrates its own copy independently between syncs (spec.md §5's
// "workers write only to their own private stores" rule).
type BodySnapshot struct {
	Handle entity.Handle
	Body   body.RigidBody
}

// EdgeSnapshot names a manifold/joint edge and its two endpoints, kept
// together so a delta can recreate the edge after the endpoints exist
// on the receiving side without a second round trip.
type EdgeSnapshot struct {
	island.EdgeDef
	Connecting map[entity.Handle]bool

	// Build constructs the actual joint constraint from the two
	// endpoints' worker-local *body.RigidBody pointers. It crosses the
	// inbox as a closure rather than a constructed Constraint because a
	// Constraint captured at the coordinator's call site would alias
	// the coordinator's copy of the bodies, not the worker's private
	// one each side integrates independently (spec.md §5).
	Build func(a, b *body.RigidBody) constraint.Constraint
}

// Delta is the batched, ordered description of entity/component
// change exchanged between coordinator and worker (spec.md §4.9 and
// the GLOSSARY "Delta" entry). Fields are applied in declaration
// order on the receiving side: created entities and bodies must exist
// before CreatedEdges can reference them, and DestroyedEntities is
// applied last so a body being both updated and destroyed in the same
// delta destroys cleanly.
type Delta struct {
	CreatedEntities   []entity.Handle
	CreatedBodies     []BodySnapshot
	CreatedEdges      []EdgeSnapshot
	UpdatedBodies     []BodySnapshot
	DestroyedEdges    []entity.Handle
	DestroyedEntities []entity.Handle

	// Settings, when non-nil, carries the coordinator's current global
	// settings (gravity, fixed dt, solver iteration counts). It is sent
	// after a settings change and with every dynamic body creation;
	// workers apply it before their next step.
	Settings *Settings

	// Terminating, when true, tells the receiving worker to finish its
	// current job and deallocate rather than reschedule (spec.md §5's
	// terminating-flag shutdown).
	Terminating bool

	// SplitRequest, sent worker-to-coordinator only, names an edge the
	// worker's local graph no longer connects to the rest of its
	// island; the coordinator performs the actual split at the next
	// safe point since only it may write the authoritative store.
	SplitRequest *entity.Handle

	// ExcludedPairs names body pairs that must never generate a
	// manifold even though their filters would otherwise allow it, per
	// spec.md §6's exclude_collision. Only meaningful within a single
	// worker: two bodies in different islands never share a broadphase
	// pass to begin with.
	ExcludedPairs []HandlePair
}

// HandlePair is an unordered pair of entity handles.
type HandlePair struct{ A, B entity.Handle }

// IsEmpty reports whether the delta carries no change at all, letting
// a worker skip an outbox send on a quiet step.
func (d *Delta) IsEmpty() bool {
	return len(d.CreatedEntities) == 0 && len(d.CreatedBodies) == 0 &&
		len(d.CreatedEdges) == 0 && len(d.UpdatedBodies) == 0 &&
		len(d.DestroyedEdges) == 0 && len(d.DestroyedEntities) == 0 &&
		len(d.ExcludedPairs) == 0 &&
		d.Settings == nil && !d.Terminating && d.SplitRequest == nil
}

// DeltaBuilder accumulates one side's view of a step's changes before
// it is shipped, mirroring edyn's island_delta_builder: call sites stay
// append-only and never worry about slice aliasing across sends.
type DeltaBuilder struct {
	delta Delta
}

func NewDeltaBuilder() *DeltaBuilder {
	return &DeltaBuilder{}
}

func (b *DeltaBuilder) CreateEntity(h entity.Handle) *DeltaBuilder {
	b.delta.CreatedEntities = append(b.delta.CreatedEntities, h)
	return b
}

func (b *DeltaBuilder) CreateBody(h entity.Handle, rb body.RigidBody) *DeltaBuilder {
	b.delta.CreatedBodies = append(b.delta.CreatedBodies, BodySnapshot{Handle: h, Body: rb})
	return b
}

func (b *DeltaBuilder) CreateEdge(def island.EdgeDef, connecting map[entity.Handle]bool, build func(a, b *body.RigidBody) constraint.Constraint) *DeltaBuilder {
	b.delta.CreatedEdges = append(b.delta.CreatedEdges, EdgeSnapshot{EdgeDef: def, Connecting: connecting, Build: build})
	return b
}

func (b *DeltaBuilder) UpdateBody(h entity.Handle, rb body.RigidBody) *DeltaBuilder {
	b.delta.UpdatedBodies = append(b.delta.UpdatedBodies, BodySnapshot{Handle: h, Body: rb})
	return b
}

func (b *DeltaBuilder) DestroyEdge(h entity.Handle) *DeltaBuilder {
	b.delta.DestroyedEdges = append(b.delta.DestroyedEdges, h)
	return b
}

func (b *DeltaBuilder) DestroyEntity(h entity.Handle) *DeltaBuilder {
	b.delta.DestroyedEntities = append(b.delta.DestroyedEntities, h)
	return b
}

func (b *DeltaBuilder) WithSettings(s Settings) *DeltaBuilder {
	b.delta.Settings = &s
	return b
}

func (b *DeltaBuilder) RequestSplit(edge entity.Handle) *DeltaBuilder {
	b.delta.SplitRequest = &edge
	return b
}

func (b *DeltaBuilder) ExcludePair(a, bHandle entity.Handle) *DeltaBuilder {
	b.delta.ExcludedPairs = append(b.delta.ExcludedPairs, HandlePair{A: a, B: bHandle})
	return b
}

func (b *DeltaBuilder) Terminate() *DeltaBuilder {
	b.delta.Terminating = true
	return b
}

func (b *DeltaBuilder) Build() Delta {
	return b.delta
}
