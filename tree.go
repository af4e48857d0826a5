package lattice

// treeNode is a pooled scene graph element. Nodes are reused from a free
// list; a released node keeps its children slice capacity.
type treeNode struct {
	data     Entity
	parent   int
	children []int
}

// Tree is a pooled N-ary scene graph keyed by entity data rather than raw
// node index, so relationships survive entity id reuse as long as the node
// is removed before the id comes back.
type Tree struct {
	nodes   []treeNode
	free    []int
	roots   []int
	index   map[Entity]int
	version uint64
}

func newTree() *Tree {
	return &Tree{index: make(map[Entity]int)}
}

func (t *Tree) alloc() int {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		return idx
	}
	t.nodes = append(t.nodes, treeNode{data: NoEntity, parent: -1})
	return len(t.nodes) - 1
}

// Add inserts child under parent. Pass NoEntity as parent to insert a root.
// Each entity may hold at most one node.
func (t *Tree) Add(parent, child Entity) error {
	if _, exists := t.index[child]; exists {
		return NodeExistsError{Entity: child}
	}
	parentIdx := -1
	if parent != NoEntity {
		pi, ok := t.index[parent]
		if !ok {
			return EntityNotFoundError{Entity: parent}
		}
		parentIdx = pi
	}
	idx := t.alloc()
	node := &t.nodes[idx]
	node.data = child
	node.parent = parentIdx
	node.children = node.children[:0]
	if parentIdx == -1 {
		t.roots = append(t.roots, idx)
	} else {
		t.nodes[parentIdx].children = append(t.nodes[parentIdx].children, idx)
	}
	t.index[child] = idx
	t.version++
	return nil
}

// AddMultiple bulk-inserts children under parent. With replaceChildren the
// parent's existing children are detached to the root list first (subtrees
// are never deleted implicitly). With unique, entities already under the
// parent are skipped; entities parked elsewhere in the tree are moved, except
// that moving an entity under its own descendant is rejected.
func (t *Tree) AddMultiple(parent Entity, children []Entity, replaceChildren, unique bool) error {
	parentIdx := -1
	if parent != NoEntity {
		pi, ok := t.index[parent]
		if !ok {
			return EntityNotFoundError{Entity: parent}
		}
		parentIdx = pi
	}
	if replaceChildren && parentIdx != -1 {
		old := t.nodes[parentIdx].children
		t.nodes[parentIdx].children = t.nodes[parentIdx].children[:0]
		for _, ci := range old {
			t.nodes[ci].parent = -1
			t.roots = append(t.roots, ci)
		}
		t.version++
	}
	for _, child := range children {
		if child == NoEntity {
			continue
		}
		idx, exists := t.index[child]
		if exists {
			if t.nodes[idx].parent == parentIdx {
				// One node per entity; re-adding under the same parent is a
				// no-op, which also de-duplicates repeated input.
				continue
			}
			if unique {
				continue
			}
			if parentIdx != -1 && t.isAncestor(idx, parentIdx) {
				return HierarchyCycleError{Parent: parent, Child: child}
			}
			t.unlink(idx)
			t.nodes[idx].parent = parentIdx
			if parentIdx == -1 {
				t.roots = append(t.roots, idx)
			} else {
				t.nodes[parentIdx].children = append(t.nodes[parentIdx].children, idx)
			}
			t.version++
			continue
		}
		if err := t.Add(parent, child); err != nil {
			return err
		}
	}
	return nil
}

// isAncestor reports whether idx equals of or lies on of's parent chain.
// Relinking an ancestor under its own descendant would detach the loop from
// the root list and make it unreachable.
func (t *Tree) isAncestor(idx, of int) bool {
	for cur := of; cur != -1; cur = t.nodes[cur].parent {
		if cur == idx {
			return true
		}
	}
	return false
}

// unlink removes a node from its parent's children list or from the root
// list, preserving sibling order. The node itself is left intact.
func (t *Tree) unlink(idx int) {
	parent := t.nodes[idx].parent
	list := &t.roots
	if parent != -1 {
		list = &t.nodes[parent].children
	}
	for i, ci := range *list {
		if ci == idx {
			*list = append((*list)[:i], (*list)[i+1:]...)
			break
		}
	}
}

// Remove releases e's node back to the pool. Its children are re-parented to
// e's own parent (or become roots), never silently orphaned. Returns false
// when e has no node.
func (t *Tree) Remove(e Entity) bool {
	idx, ok := t.index[e]
	if !ok {
		return false
	}
	t.unlink(idx)
	parent := t.nodes[idx].parent
	for _, ci := range t.nodes[idx].children {
		t.nodes[ci].parent = parent
		if parent == -1 {
			t.roots = append(t.roots, ci)
		} else {
			t.nodes[parent].children = append(t.nodes[parent].children, ci)
		}
	}
	node := &t.nodes[idx]
	node.data = NoEntity
	node.parent = -1
	node.children = node.children[:0]
	t.free = append(t.free, idx)
	delete(t.index, e)
	t.version++
	return true
}

// FindNode returns the pooled node index for e.
func (t *Tree) FindNode(e Entity) (int, bool) {
	idx, ok := t.index[e]
	return idx, ok
}

// Parent returns e's parent entity. A root reports NoEntity with ok true;
// an entity without a node reports ok false.
func (t *Tree) Parent(e Entity) (Entity, bool) {
	idx, ok := t.index[e]
	if !ok {
		return NoEntity, false
	}
	pi := t.nodes[idx].parent
	if pi == -1 {
		return NoEntity, true
	}
	return t.nodes[pi].data, true
}

// Children returns e's direct children in insertion order.
func (t *Tree) Children(e Entity) []Entity {
	idx, ok := t.index[e]
	if !ok {
		return nil
	}
	out := make([]Entity, 0, len(t.nodes[idx].children))
	for _, ci := range t.nodes[idx].children {
		out = append(out, t.nodes[ci].data)
	}
	return out
}

// Len reports how many entities currently hold tree nodes.
func (t *Tree) Len() int {
	return len(t.index)
}

// Flatten walks the tree breadth-first and returns the entities in traversal
// order plus a per-layer count array, so GPU passes can process the graph
// one depth layer at a time. Order within a layer follows insertion order.
func (t *Tree) Flatten() (flat []int32, layerCounts []int32) {
	frontier := make([]int, len(t.roots))
	copy(frontier, t.roots)
	for len(frontier) > 0 {
		layerCounts = append(layerCounts, int32(len(frontier)))
		var next []int
		for _, idx := range frontier {
			flat = append(flat, int32(t.nodes[idx].data))
			next = append(next, t.nodes[idx].children...)
		}
		frontier = next
	}
	return flat, layerCounts
}
