// Package broadphase maintains the two dynamic AABB trees ("dynamic" for
// moving bodies refitted every step, "static" for static/kinematic
// bodies refitted only on change) and the pair-existence map that feeds
// manifold creation, per spec.md §4.2. The tree itself is grounded on
// the teacher's spatial-hash broadphase (spatialgrid.go) generalized
// from a uniform grid to a proper binary AABB tree, since the spec
// calls for tree refit/re-insert semantics a grid cannot express.
package broadphase

import (
	"github.com/quillphysics/quill/entity"

	"github.com/quillphysics/quill/body"
)

const nullNode = -1

type treeNode struct {
	aabb     body.AABB
	handle   entity.Handle
	isLeaf   bool
	parent   int
	child1   int
	child2   int
	height   int
}

// Tree is a binary AABB tree supporting insert/remove and lazy refit
// with margin-inflated leaf bounds, in the style of a dynamic bounding
// volume hierarchy: leaves only need re-inserting when their tight AABB
// escapes the inflated bound stored at insert time.
type Tree struct {
	nodes    []treeNode
	root     int
	freeList int
	leafOf   map[entity.Handle]int
	margin   float64
}

func NewTree(margin float64) *Tree {
	return &Tree{
		root:     nullNode,
		freeList: nullNode,
		leafOf:   make(map[entity.Handle]int),
		margin:   margin,
	}
}

func (t *Tree) allocateNode() int {
	if t.freeList == nullNode {
		t.nodes = append(t.nodes, treeNode{parent: nullNode, child1: nullNode, child2: nullNode, height: -1})
		return len(t.nodes) - 1
	}
	idx := t.freeList
	t.freeList = t.nodes[idx].child1
	t.nodes[idx] = treeNode{parent: nullNode, child1: nullNode, child2: nullNode, height: -1}
	return idx
}

func (t *Tree) freeNode(idx int) {
	t.nodes[idx].height = -1
	t.nodes[idx].child1 = t.freeList
	t.freeList = idx
}

// Insert adds handle with the given tight AABB, storing an
// margin-inflated version so small moves don't require a re-insert.
func (t *Tree) Insert(handle entity.Handle, aabb body.AABB) {
	leaf := t.allocateNode()
	t.nodes[leaf].aabb = aabb.Inflate(t.margin)
	t.nodes[leaf].handle = handle
	t.nodes[leaf].isLeaf = true
	t.nodes[leaf].height = 0
	t.leafOf[handle] = leaf
	t.insertLeaf(leaf)
}

func (t *Tree) Remove(handle entity.Handle) {
	leaf, ok := t.leafOf[handle]
	if !ok {
		return
	}
	t.removeLeaf(leaf)
	t.freeNode(leaf)
	delete(t.leafOf, handle)
}

// Refit updates handle's bounds. If the new tight AABB still fits
// inside the node's stored inflated AABB, nothing is rebuilt; otherwise
// the leaf is removed and re-inserted with a freshly inflated AABB,
// per spec.md §4.2 step 1.
func (t *Tree) Refit(handle entity.Handle, tight body.AABB) {
	leaf, ok := t.leafOf[handle]
	if !ok {
		t.Insert(handle, tight)
		return
	}
	if t.nodes[leaf].aabb.Contains(tight) {
		return
	}
	t.removeLeaf(leaf)
	t.nodes[leaf].aabb = tight.Inflate(t.margin)
	t.insertLeaf(leaf)
}

func (t *Tree) Contains(handle entity.Handle) bool {
	_, ok := t.leafOf[handle]
	return ok
}

// Query invokes visit for every leaf whose stored AABB overlaps aabb.
func (t *Tree) Query(aabb body.AABB, visit func(entity.Handle)) {
	if t.root == nullNode {
		return
	}
	stack := []int{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]
		if !n.aabb.Overlaps(aabb) {
			continue
		}
		if n.isLeaf {
			visit(n.handle)
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
}

func (t *Tree) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	leafAABB := t.nodes[leaf].aabb
	idx := t.root
	for !t.nodes[idx].isLeaf {
		child1 := t.nodes[idx].child1
		child2 := t.nodes[idx].child2

		area := t.nodes[idx].aabb.SurfaceArea()
		combined := t.nodes[idx].aabb.Union(leafAABB)
		combinedArea := combined.SurfaceArea()

		cost := 2 * combinedArea
		inheritanceCost := 2 * (combinedArea - area)

		cost1 := t.childCost(child1, leafAABB) + inheritanceCost
		cost2 := t.childCost(child2, leafAABB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			idx = child1
		} else {
			idx = child2
		}
	}

	sibling := idx
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAABB.Union(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
	} else {
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
		t.root = newParent
	}

	t.fixUpwards(t.nodes[leaf].parent)
}

func (t *Tree) childCost(child int, leafAABB body.AABB) float64 {
	if t.nodes[child].isLeaf {
		return t.nodes[child].aabb.Union(leafAABB).SurfaceArea()
	}
	oldArea := t.nodes[child].aabb.SurfaceArea()
	newArea := t.nodes[child].aabb.Union(leafAABB).SurfaceArea()
	return newArea - oldArea
}

func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	var sibling int
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent != nullNode {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)
		t.fixUpwards(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
	}
}

func (t *Tree) fixUpwards(idx int) {
	for idx != nullNode {
		child1 := t.nodes[idx].child1
		child2 := t.nodes[idx].child2
		t.nodes[idx].height = 1 + maxInt(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[idx].aabb = t.nodes[child1].aabb.Union(t.nodes[child2].aabb)
		idx = t.nodes[idx].parent
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
