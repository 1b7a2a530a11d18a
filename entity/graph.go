package entity

// Graph is the entity-relation graph the island manager partitions.
// Dynamic bodies are "connecting" nodes: traversal crosses them freely.
// Static/kinematic bodies are "non-connecting" nodes: edges may touch
// them, but Reach never continues traversal through them, so two
// dynamic chains sharing only a static anchor are not considered
// reachable from one another.
type Graph struct {
	nodes map[Handle]*node
	edges map[Handle]*edge
}

type node struct {
	handle     Handle
	connecting bool
	edges      []Handle
}

type edge struct {
	handle       Handle
	node0, node1 Handle
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[Handle]*node),
		edges: make(map[Handle]*edge),
	}
}

// InsertNode registers entity as a graph node. connecting marks whether
// traversal may pass through it (true for dynamic bodies).
func (g *Graph) InsertNode(handle Handle, connecting bool) {
	if _, ok := g.nodes[handle]; ok {
		return
	}
	g.nodes[handle] = &node{handle: handle, connecting: connecting}
}

// RemoveNode removes a node and every edge incident to it.
func (g *Graph) RemoveNode(handle Handle) {
	n, ok := g.nodes[handle]
	if !ok {
		return
	}
	for _, eh := range append([]Handle(nil), n.edges...) {
		g.RemoveEdge(eh)
	}
	delete(g.nodes, handle)
}

// HasNode reports whether handle is a registered node.
func (g *Graph) HasNode(handle Handle) bool {
	_, ok := g.nodes[handle]
	return ok
}

// IsConnecting reports whether handle is a connecting (dynamic) node.
func (g *Graph) IsConnecting(handle Handle) bool {
	n, ok := g.nodes[handle]
	return ok && n.connecting
}

// InsertEdge registers handle as an edge connecting node0 and node1. Both
// endpoints must already be nodes.
func (g *Graph) InsertEdge(handle, node0, node1 Handle) {
	if _, ok := g.edges[handle]; ok {
		return
	}
	n0, ok0 := g.nodes[node0]
	n1, ok1 := g.nodes[node1]
	if !ok0 || !ok1 {
		return
	}
	g.edges[handle] = &edge{handle: handle, node0: node0, node1: node1}
	n0.edges = append(n0.edges, handle)
	n1.edges = append(n1.edges, handle)
}

// RemoveEdge unregisters handle from the graph and from both endpoints'
// adjacency lists.
func (g *Graph) RemoveEdge(handle Handle) {
	e, ok := g.edges[handle]
	if !ok {
		return
	}
	if n0, ok := g.nodes[e.node0]; ok {
		n0.edges = removeHandle(n0.edges, handle)
	}
	if n1, ok := g.nodes[e.node1]; ok {
		n1.edges = removeHandle(n1.edges, handle)
	}
	delete(g.edges, handle)
}

// Endpoints returns the two nodes an edge connects.
func (g *Graph) Endpoints(edgeHandle Handle) (node0, node1 Handle, ok bool) {
	e, found := g.edges[edgeHandle]
	if !found {
		return Nil, Nil, false
	}
	return e.node0, e.node1, true
}

// VisitEdges calls f for every edge incident to node.
func (g *Graph) VisitEdges(node Handle, f func(edgeHandle Handle)) {
	n, ok := g.nodes[node]
	if !ok {
		return
	}
	for _, eh := range n.edges {
		f(eh)
	}
}

// VisitNeighbors calls f for every node directly connected to node via
// some edge, regardless of connecting-ness.
func (g *Graph) VisitNeighbors(node Handle, f func(neighbor, viaEdge Handle)) {
	n, ok := g.nodes[node]
	if !ok {
		return
	}
	for _, eh := range n.edges {
		e := g.edges[eh]
		if e == nil {
			continue
		}
		switch {
		case e.node0 == node:
			f(e.node1, eh)
		case e.node1 == node:
			f(e.node0, eh)
		}
	}
}

// Component is a maximal reachable subgraph discovered by Reach: the set
// of node and edge handles that belong to it.
type Component struct {
	Nodes []Handle
	Edges []Handle
}

// Reach performs a bounded traversal from each seed node, invoking
// onComponent once per maximal reachable subgraph. shouldVisit is the
// pruning predicate: returning false for a node stops traversal there
// without excluding the node itself from the component (this is how the
// island manager stops at existing island boundaries while still
// recording the boundary node as touched). visitNode/visitEdge, when
// non-nil, are called once for every node/edge newly added to the
// current component, in discovery order.
//
// Traversal only continues through connecting nodes: a non-connecting
// (static/kinematic) node is added to the component but never used to
// reach further nodes, matching the "connecting nodes" rule in spec.md's
// island definition. The one exception is a non-connecting seed, whose
// own edges are still followed.
func (g *Graph) Reach(
	seeds []Handle,
	visitNode func(Handle),
	visitEdge func(Handle),
	shouldVisit func(Handle) bool,
	onComponent func(Component),
) {
	visited := make(map[Handle]bool)

	for _, seed := range seeds {
		if visited[seed] {
			continue
		}
		if _, ok := g.nodes[seed]; !ok {
			continue
		}

		comp := Component{}
		queue := []Handle{seed}
		visited[seed] = true

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			comp.Nodes = append(comp.Nodes, cur)
			if visitNode != nil {
				visitNode(cur)
			}

			n := g.nodes[cur]
			if n == nil {
				continue
			}

			if shouldVisit != nil && !shouldVisit(cur) {
				continue
			}
			if !n.connecting && cur != seed {
				// Non-connecting nodes terminate traversal but were
				// already recorded above.
				continue
			}

			for _, eh := range n.edges {
				e := g.edges[eh]
				if e == nil {
					continue
				}
				var next Handle
				switch {
				case e.node0 == cur:
					next = e.node1
				case e.node1 == cur:
					next = e.node0
				default:
					continue
				}

				if !edgeSeen(comp.Edges, eh) {
					comp.Edges = append(comp.Edges, eh)
					if visitEdge != nil {
						visitEdge(eh)
					}
				}

				if visited[next] {
					continue
				}
				if _, ok := g.nodes[next]; !ok {
					continue
				}
				visited[next] = true
				queue = append(queue, next)
			}
		}

		if onComponent != nil {
			onComponent(comp)
		}
	}
}

// ConnectedComponents returns every maximal connected component of the
// whole graph, partitioning all nodes.
func (g *Graph) ConnectedComponents() []Component {
	// Connecting nodes seed first, so a shared non-connecting node is
	// reached from its neighbours instead of starting a traversal that
	// would join them through it.
	seeds := make([]Handle, 0, len(g.nodes))
	for h, n := range g.nodes {
		if n.connecting {
			seeds = append(seeds, h)
		}
	}
	for h, n := range g.nodes {
		if !n.connecting {
			seeds = append(seeds, h)
		}
	}

	var components []Component
	g.Reach(seeds, nil, nil, nil, func(c Component) {
		components = append(components, c)
	})
	return components
}

// IsSingleConnectedComponent reports whether the entire graph is one
// connected component.
func (g *Graph) IsSingleConnectedComponent() bool {
	components := g.ConnectedComponents()
	return len(components) <= 1
}

func removeHandle(list []Handle, h Handle) []Handle {
	for i, v := range list {
		if v == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func edgeSeen(list []Handle, h Handle) bool {
	for _, v := range list {
		if v == h {
			return true
		}
	}
	return false
}
