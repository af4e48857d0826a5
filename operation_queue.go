package lattice

// countChange records one entity's deferred instance-count transition.
// oldCount is captured when the change is first recorded and survives
// later updates to newCount, so a round trip back to oldCount cancels.
type countChange struct {
	oldCount int
	newCount int
}

// opQueue buffers deferred mutation between flush points. Writers only
// append here; the arrays themselves are untouched until the designated
// flush runs.
type opQueue struct {
	pendingDeletes []Entity
	pendingCounts  map[Entity]countChange
}

func newOpQueue() opQueue {
	return opQueue{
		pendingCounts: make(map[Entity]countChange),
	}
}

func (q *opQueue) enqueueDelete(e Entity) {
	q.pendingDeletes = append(q.pendingDeletes, e)
}
