package entity

import "testing"

func handle(i uint32) Handle { return Handle{Index: i, Generation: 1} }

func TestGraphInsertEdgeAndVisit(t *testing.T) {
	g := NewGraph()
	a, b, e := handle(1), handle(2), handle(100)

	g.InsertNode(a, true)
	g.InsertNode(b, true)
	g.InsertEdge(e, a, b)

	var seen []Handle
	g.VisitEdges(a, func(eh Handle) { seen = append(seen, eh) })
	if len(seen) != 1 || seen[0] != e {
		t.Fatalf("expected edge %v incident to a, got %v", e, seen)
	}

	var neighbor Handle
	g.VisitNeighbors(a, func(n, via Handle) { neighbor = n })
	if neighbor != b {
		t.Fatalf("expected neighbor b, got %v", neighbor)
	}
}

func TestGraphRemoveNodeCascadesEdges(t *testing.T) {
	g := NewGraph()
	a, b, e := handle(1), handle(2), handle(100)
	g.InsertNode(a, true)
	g.InsertNode(b, true)
	g.InsertEdge(e, a, b)

	g.RemoveNode(a)

	if g.HasNode(a) {
		t.Fatalf("node a should be removed")
	}
	if _, _, ok := g.Endpoints(e); ok {
		t.Fatalf("edge incident to removed node should be removed too")
	}
}

func TestGraphTraversalStopsAtNonConnectingNode(t *testing.T) {
	// Two dynamic chains sharing only a static anchor must not be
	// considered reachable from one another.
	g := NewGraph()
	d1, d2, static := handle(1), handle(2), handle(3)
	e1, e2 := handle(10), handle(11)

	g.InsertNode(d1, true)
	g.InsertNode(d2, true)
	g.InsertNode(static, false)
	g.InsertEdge(e1, d1, static)
	g.InsertEdge(e2, d2, static)

	components := g.ConnectedComponents()
	if len(components) != 2 {
		t.Fatalf("expected 2 components (dynamics separated by static anchor), got %d", len(components))
	}
}

func TestGraphSingleConnectedComponent(t *testing.T) {
	g := NewGraph()
	a, b, c := handle(1), handle(2), handle(3)
	e1, e2 := handle(10), handle(11)
	g.InsertNode(a, true)
	g.InsertNode(b, true)
	g.InsertNode(c, true)
	g.InsertEdge(e1, a, b)
	g.InsertEdge(e2, b, c)

	if !g.IsSingleConnectedComponent() {
		t.Fatalf("expected single connected component for a chain a-b-c")
	}

	g.RemoveEdge(e2)
	if g.IsSingleConnectedComponent() {
		t.Fatalf("removing the middle edge should split the chain")
	}
}

func TestGraphReachShouldVisitPruning(t *testing.T) {
	g := NewGraph()
	a, b, c := handle(1), handle(2), handle(3)
	e1, e2 := handle(10), handle(11)
	g.InsertNode(a, true)
	g.InsertNode(b, true)
	g.InsertNode(c, true)
	g.InsertEdge(e1, a, b)
	g.InsertEdge(e2, b, c)

	visitedNodes := map[Handle]bool{}
	g.Reach([]Handle{a}, func(h Handle) { visitedNodes[h] = true }, nil,
		func(h Handle) bool { return h != b }, // stop traversal at b
		nil,
	)

	if !visitedNodes[a] || !visitedNodes[b] {
		t.Fatalf("a and b should be visited")
	}
	if visitedNodes[c] {
		t.Fatalf("c should not be reached once traversal is pruned at b")
	}
}
