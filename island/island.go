// Package island partitions the entity graph into islands: maximal
// connected groups of dynamic bodies (plus the static/kinematic bodies
// they touch) that the coordinator steps independently (spec.md §4.8).
package island

import (
	"github.com/quillphysics/quill/body"
	"github.com/quillphysics/quill/entity"
)

// ID names an island. Zero is never issued by Manager.
type ID uint32

// Default sleep thresholds, spec.md §4.8's "small threshold" language.
const (
	DefaultLinearSleepThreshold  = 0.01
	DefaultAngularSleepThreshold = 0.01
	DefaultTimeToSleep           = 0.5
)

// Island is one maximal connected component of the entity graph's
// dynamic (connecting) bodies, plus every static/kinematic body an edge
// of the component touches. AABB is the union of every member's AABB,
// refit by the caller after each step; Manager never computes it.
type Island struct {
	ID      ID
	Nodes   map[entity.Handle]bool
	Edges   map[entity.Handle]bool
	AABB    body.AABB
	hasAABB bool

	Sleeping   bool
	sleepTimer float64
}

func newIsland(id ID) *Island {
	return &Island{
		ID:    id,
		Nodes: make(map[entity.Handle]bool),
		Edges: make(map[entity.Handle]bool),
	}
}

func (isl *Island) addNode(h entity.Handle) { isl.Nodes[h] = true }
func (isl *Island) addEdge(h entity.Handle) { isl.Edges[h] = true }

// UnionAABB folds box into the island's running AABB union.
func (isl *Island) UnionAABB(box body.AABB) {
	if !isl.hasAABB {
		isl.AABB = box
		isl.hasAABB = true
		return
	}
	isl.AABB = isl.AABB.Union(box)
}

// Manager owns the entity graph, the islands partitioning it, and each
// node's residency. It is driven by Insert/RemoveEdge calls from the
// coordinator and exposes the insert/merge/remove/split/sleep triggers
// of spec.md §4.8. Manager itself never touches rigid-body velocities;
// Sleep/UpdateSleep read from a caller-supplied body lookup so the
// package stays usable against either the coordinator's live store or a
// worker's private view.
type Manager struct {
	graph *entity.Graph

	islands map[ID]*Island
	nextID  ID

	// residency holds the single island a connecting (dynamic) node
	// belongs to. A connecting node is never a member of more than one
	// island at a time.
	residency map[entity.Handle]ID

	// multi holds, for a non-connecting (static/kinematic) node, every
	// island whose edges currently touch it. Unlike connecting nodes, a
	// shared static anchor is legitimately resident in more than one
	// island simultaneously (spec.md §4.8's "non-procedural multi-
	// resident" case).
	multi map[entity.Handle]map[ID]bool

	LinearSleepThreshold  float64
	AngularSleepThreshold float64
	TimeToSleep           float64

	// Bodies, when set, lets Insert/RemoveEdge wake the actual rigid
	// bodies of a touched island (clearing RigidBody.Sleeping) rather
	// than only the Island's own bookkeeping flag. UpdateSleep always
	// requires a Lookup passed explicitly and does not read this field.
	Bodies Lookup
}

func NewManager() *Manager {
	return &Manager{
		graph:                 entity.NewGraph(),
		islands:               make(map[ID]*Island),
		residency:             make(map[entity.Handle]ID),
		multi:                 make(map[entity.Handle]map[ID]bool),
		nextID:                1,
		LinearSleepThreshold:  DefaultLinearSleepThreshold,
		AngularSleepThreshold: DefaultAngularSleepThreshold,
		TimeToSleep:           DefaultTimeToSleep,
	}
}

// Graph exposes the underlying entity graph for callers (coordinator,
// narrowphase) that need VisitEdges/VisitNeighbors directly.
func (m *Manager) Graph() *entity.Graph { return m.graph }

// IslandOf returns an island a node currently resides in, or (nil,
// false) if it is not tracked. For a multi-resident non-connecting
// node this returns an arbitrary one of its islands; use Islands() and
// check Nodes directly to enumerate all of them.
func (m *Manager) IslandOf(h entity.Handle) (*Island, bool) {
	if id, ok := m.residency[h]; ok {
		return m.islands[id], true
	}
	for id := range m.multi[h] {
		if isl := m.islands[id]; isl != nil {
			return isl, true
		}
	}
	return nil, false
}

// Islands returns every live island, in no particular order.
func (m *Manager) Islands() []*Island {
	out := make([]*Island, 0, len(m.islands))
	for _, isl := range m.islands {
		out = append(out, isl)
	}
	return out
}

func (m *Manager) allocIsland() *Island {
	id := m.nextID
	m.nextID++
	isl := newIsland(id)
	m.islands[id] = isl
	return isl
}

func (m *Manager) destroyIsland(id ID) {
	delete(m.islands, id)
}

// assign makes h a member of isl. Connecting nodes are moved (removed
// from whatever island they previously resided in); non-connecting
// nodes are added alongside any islands they already belong to.
func (m *Manager) assign(h entity.Handle, isl *Island) {
	if !m.graph.IsConnecting(h) {
		isl.addNode(h)
		if m.multi[h] == nil {
			m.multi[h] = make(map[ID]bool)
		}
		m.multi[h][isl.ID] = true
		return
	}
	if old, ok := m.residency[h]; ok && old != isl.ID && m.islands[old] != nil {
		delete(m.islands[old].Nodes, h)
	}
	isl.addNode(h)
	m.residency[h] = isl.ID
}

// unassign removes h's membership in isl. For a connecting node this
// only clears residency if isl was in fact its current island.
func (m *Manager) unassign(h entity.Handle, isl *Island) {
	delete(isl.Nodes, h)
	if m.graph.IsConnecting(h) {
		if m.residency[h] == isl.ID {
			delete(m.residency, h)
		}
		return
	}
	if ids, ok := m.multi[h]; ok {
		delete(ids, isl.ID)
		if len(ids) == 0 {
			delete(m.multi, h)
		}
	}
}
