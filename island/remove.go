package island

import "github.com/quillphysics/quill/entity"

// RemoveEdge unregisters an edge from the graph and attempts the split
// spec.md §4.8 describes: a full traversal from one procedural
// (connecting, dynamic) endpoint finds everything still reachable;
// any procedural node of the old island not reached by that traversal
// is moved into a fresh island. Non-procedural (static/kinematic)
// nodes are never split out on their own — each is re-added to
// whichever resulting island(s) still touch it.
func (m *Manager) RemoveEdge(h entity.Handle) *Island {
	node0, node1, ok := m.graph.Endpoints(h)
	if !ok {
		return nil
	}

	id, hasIsland := m.residency[node0]
	if !hasIsland {
		id, hasIsland = m.residency[node1]
	}

	m.graph.RemoveEdge(h)
	if !hasIsland {
		return nil
	}
	isl := m.islands[id]
	if isl == nil {
		return nil
	}
	delete(isl.Edges, h)
	m.wake(isl)

	seed := firstProceduralNode(m.graph, isl)
	if seed.IsNil() {
		// The island had no procedural node left after the edge was
		// removed (e.g. a lone static body edge); nothing to split.
		return isl
	}

	reached := map[entity.Handle]bool{}
	m.graph.Reach([]entity.Handle{seed}, func(n entity.Handle) { reached[n] = true }, nil, nil, nil)

	var stranded []entity.Handle
	for n := range isl.Nodes {
		if !reached[n] && m.graph.IsConnecting(n) {
			stranded = append(stranded, n)
		}
	}
	if len(stranded) == 0 {
		m.recomputeNonProceduralResidency(isl)
		return isl
	}

	fresh := m.allocIsland()
	split := entity.Component{}
	m.graph.Reach(stranded, func(n entity.Handle) { split.Nodes = append(split.Nodes, n) }, func(e entity.Handle) { split.Edges = append(split.Edges, e) }, nil, nil)
	m.absorb(fresh, split)

	// Any edge still listed on the old island whose endpoints both
	// ended up in fresh belongs to fresh, not isl.
	for e := range isl.Edges {
		n0, n1, ok := m.graph.Endpoints(e)
		if !ok {
			continue
		}
		if fresh.Nodes[n0] && fresh.Nodes[n1] {
			delete(isl.Edges, e)
			fresh.addEdge(e)
		}
	}

	m.recomputeNonProceduralResidency(isl)
	m.recomputeNonProceduralResidency(fresh)

	return isl
}

func firstProceduralNode(g *entity.Graph, isl *Island) entity.Handle {
	for h := range isl.Nodes {
		if g.IsConnecting(h) {
			return h
		}
	}
	return entity.Nil
}

// recomputeNonProceduralResidency re-derives which non-procedural
// (static/kinematic) nodes still belong to isl after a split: a
// static/kinematic node stays resident in every island one of its
// edges still touches, so a multi-resident anchor (e.g. a shared
// static floor) is re-added here rather than stolen from the other
// side of the split.
func (m *Manager) recomputeNonProceduralResidency(isl *Island) {
	for h := range isl.Nodes {
		if m.graph.IsConnecting(h) {
			continue
		}
		stillTouches := false
		m.graph.VisitNeighbors(h, func(_ entity.Handle, viaEdge entity.Handle) {
			if isl.Edges[viaEdge] {
				stillTouches = true
			}
		})
		if !stillTouches {
			m.unassign(h, isl)
		} else {
			if ids, ok := m.multi[h]; !ok || !ids[isl.ID] {
				m.assign(h, isl)
			}
		}
	}
}
