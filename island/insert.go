package island

import "github.com/quillphysics/quill/entity"

// EdgeDef is one new edge queued for insertion this step, naming its
// own handle and the two endpoints it connects.
type EdgeDef struct {
	Handle       entity.Handle
	Node0, Node1 entity.Handle
}

// Insert registers newNodes (each already known to be connecting or
// not) and newEdges in the underlying graph, then resolves which
// island(s) they touch: a connected component touching no existing
// island becomes a new island, one touching exactly one island is
// folded into it, and one touching two or more triggers a merge that
// keeps the largest survivor and destroys the rest (spec.md §4.8).
// Nodes/edges that already exist in the graph are no-ops to register
// but are still eligible seeds, so callers may pass every node/edge
// touched by a batch of changes rather than tracking "was this new".
func (m *Manager) Insert(newNodes []entity.Handle, connecting map[entity.Handle]bool, newEdges []EdgeDef) []*Island {
	for _, h := range newNodes {
		m.graph.InsertNode(h, connecting[h])
	}
	for _, e := range newEdges {
		m.graph.InsertEdge(e.Handle, e.Node0, e.Node1)
	}

	// Only connecting (dynamic) nodes seed the reach and count toward
	// "touching" an island: a shared static/kinematic anchor is allowed
	// to be multi-resident rather than forcing everything on the other
	// side of it into the same island (spec.md §4.8, and the entity
	// graph's own "connecting nodes" traversal rule).
	seeds := make([]entity.Handle, 0, len(newNodes)+2*len(newEdges))
	for _, h := range newNodes {
		if m.graph.IsConnecting(h) {
			seeds = append(seeds, h)
		}
	}
	for _, e := range newEdges {
		if m.graph.IsConnecting(e.Node0) {
			seeds = append(seeds, e.Node0)
		}
		if m.graph.IsConnecting(e.Node1) {
			seeds = append(seeds, e.Node1)
		}
	}

	// A seed is always expanded, even when already resident, so a new
	// edge between two islands reaches both of them.
	isSeed := make(map[entity.Handle]bool, len(seeds))
	for _, s := range seeds {
		isSeed[s] = true
	}

	var touched []*Island
	m.graph.Reach(seeds, nil, nil, func(h entity.Handle) bool {
		if isSeed[h] {
			return true
		}
		_, resident := m.residency[h]
		return !resident
	}, func(comp entity.Component) {
		touchedIslands := map[ID]bool{}
		for _, h := range comp.Nodes {
			if !m.graph.IsConnecting(h) {
				continue
			}
			if id, ok := m.residency[h]; ok {
				touchedIslands[id] = true
			}
		}

		switch len(touchedIslands) {
		case 0:
			isl := m.allocIsland()
			m.absorb(isl, comp)
			touched = append(touched, isl)
		case 1:
			var id ID
			for k := range touchedIslands {
				id = k
			}
			isl := m.islands[id]
			m.absorb(isl, comp)
			m.wake(isl)
			touched = append(touched, isl)
		default:
			survivor := m.largestOf(touchedIslands)
			for id := range touchedIslands {
				if id == survivor.ID {
					continue
				}
				m.mergeInto(survivor, m.islands[id])
			}
			m.absorb(survivor, comp)
			m.wake(survivor)
			touched = append(touched, survivor)
		}
	})

	return touched
}

func (m *Manager) absorb(isl *Island, comp entity.Component) {
	for _, h := range comp.Nodes {
		m.assign(h, isl)
	}
	for _, h := range comp.Edges {
		isl.addEdge(h)
	}
}

func (m *Manager) largestOf(ids map[ID]bool) *Island {
	var best *Island
	for id := range ids {
		isl := m.islands[id]
		if best == nil || len(isl.Nodes) > len(best.Nodes) {
			best = isl
		}
	}
	return best
}

// mergeInto moves every node and edge of src into dst and destroys src.
func (m *Manager) mergeInto(dst, src *Island) {
	if src == dst {
		return
	}
	for h := range src.Nodes {
		if m.graph.IsConnecting(h) {
			m.assign(h, dst)
			continue
		}
		dst.addNode(h)
		if m.multi[h] == nil {
			m.multi[h] = make(map[ID]bool)
		}
		delete(m.multi[h], src.ID)
		m.multi[h][dst.ID] = true
	}
	for h := range src.Edges {
		dst.addEdge(h)
	}
	dst.UnionAABB(src.AABB)
	m.destroyIsland(src.ID)
}

func (m *Manager) wake(isl *Island) {
	wasSleeping := isl.Sleeping
	isl.Sleeping = false
	isl.sleepTimer = 0
	if wasSleeping && m.Bodies != nil {
		wakeMembers(isl, m.Bodies)
	}
}
