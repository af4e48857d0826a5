package lattice

import (
	"iter"

	"github.com/TheBitDrifter/mask"
	iter_util "github.com/TheBitDrifter/util/iter"
	"go.uber.org/zap"
)

// CreateEntity allocates an entity id, recycling freed ids before minting new
// ones. The entity is registered at the tail of the layout with one instance
// slot, and every initialized column grows to cover it.
func (w *World) CreateEntity() (Entity, error) {
	if w.locked {
		return NoEntity, LockedWorldError{}
	}
	var e Entity
	if n := len(w.freeIDs); n > 0 {
		e = w.freeIDs[n-1]
		w.freeIDs = w.freeIDs[:n-1]
	} else {
		e = w.nextID
		w.nextID++
	}
	offset := w.meta.register(e)
	w.ensureMembership(e)
	w.membership[e] = mask.Mask{}
	for _, sto := range w.allStores() {
		sto.resize(offset + 1)
	}
	w.meta.Resize(int(e) + 1)
	w.layoutGen++
	w.markRefresh()
	return e, nil
}

// DeleteEntity flags e for deferred deletion. The entity stays fully
// queryable and mutable until ProcessPendingDeletes runs, giving dependent
// systems one more frame to react. Dead ids and double deletes are silent
// no-ops.
func (w *World) DeleteEntity(e Entity) {
	if !w.meta.EntityExists(e) {
		return
	}
	if !w.meta.setPendingDelete(e) {
		return
	}
	w.ops.enqueueDelete(e)
	w.markRefresh()
}

// DuplicateEntity creates a new entity carrying deep copies of one of e's
// instances across every attached fragment. Tags are re-attached as is. The
// duplicate owns a single instance slot and is independent of the source.
func (w *World) DuplicateEntity(e Entity, instance int) (Entity, error) {
	if w.locked {
		return NoEntity, LockedWorldError{}
	}
	srcRow := w.meta.row(e)
	if srcRow == nil {
		return NoEntity, EntityNotFoundError{Entity: e}
	}
	if instance < 0 || (instance != 0 && instance >= srcRow.count) {
		return NoEntity, InstanceOutOfRangeError{Entity: e, Instance: instance, Count: srcRow.count}
	}
	srcOffset := srcRow.offset
	srcCount := srcRow.count

	dup, err := w.CreateEntity()
	if err != nil {
		return NoEntity, err
	}
	for _, f := range iter_util.Collect(w.FragmentsOf(e)) {
		if err := w.AddFragment(dup, f); err != nil {
			return NoEntity, err
		}
		sto := w.storeFor(f)
		if sto == nil || srcCount == 0 {
			continue
		}
		dupOffset, _ := w.meta.EntityOffset(dup)
		sto.cloneInstance(dupOffset, srcOffset+instance)
	}
	return dup, nil
}

// AddFragment attaches a fragment type to e, initializing its column on
// first use. Attaching a fragment the entity already has is a contract
// violation and returns a typed error.
func (w *World) AddFragment(e Entity, f Fragment) error {
	if w.locked {
		return LockedWorldError{}
	}
	if !w.meta.EntityExists(e) {
		return EntityNotFoundError{Entity: e}
	}
	w.schema.Register(f)
	bit := w.schema.RowIndexFor(f)
	w.ensureMembership(e)
	if w.membership[e].Contains(bit) {
		return FragmentExistsError{Fragment: f}
	}
	if _, known := w.registry[bit]; !known {
		w.registry[bit] = f
		w.fragmentOrder = append(w.fragmentOrder, bit)
	}
	if provider, ok := f.(storeProvider); ok {
		if _, ok := w.stores[bit]; !ok {
			sto := provider.newStore(w.meta)
			sto.initialize()
			sto.resize(w.meta.Total())
			w.stores[bit] = sto
		}
	}
	w.membership[e].Mark(bit)
	w.markRefresh()
	return nil
}

// RemoveFragment detaches a fragment type from e and zeroes its slots.
// Removing a fragment the entity lacks is a contract violation.
func (w *World) RemoveFragment(e Entity, f Fragment) error {
	if w.locked {
		return LockedWorldError{}
	}
	row := w.meta.row(e)
	if row == nil {
		return EntityNotFoundError{Entity: e}
	}
	bit := w.schema.RowIndexFor(f)
	w.ensureMembership(e)
	if !w.membership[e].Contains(bit) {
		return FragmentNotFoundError{Fragment: f}
	}
	w.membership[e].Unmark(bit)
	if sto := w.stores[bit]; sto != nil {
		sto.removeEntity(row.offset, row.count)
	}
	w.markRefresh()
	return nil
}

// HasFragment reports whether f is attached to e. Cheap and safe on dead
// ids.
func (w *World) HasFragment(e Entity, f Fragment) bool {
	if !w.meta.EntityExists(e) || int(e) >= len(w.membership) {
		return false
	}
	return w.membership[e].Contains(w.schema.RowIndexFor(f))
}

// AddTag attaches a membership-only fragment.
func (w *World) AddTag(e Entity, t Tag) error {
	return w.AddFragment(e, t)
}

// RemoveTag detaches a membership-only fragment.
func (w *World) RemoveTag(e Entity, t Tag) error {
	return w.RemoveFragment(e, t)
}

// HasTag reports whether t is attached to e.
func (w *World) HasTag(e Entity, t Tag) bool {
	return w.HasFragment(e, t)
}

// SetInstanceCount records a deferred instance-count change for e. Setting
// the count an entity already has (or will have after the pending change) is
// a no-op; setting it back to the current count cancels the pending change.
// The storage reflow happens at FlushInstanceCountChanges.
func (w *World) SetInstanceCount(e Entity, n int) error {
	if n < 0 {
		return InvalidInstanceCountError{Entity: e, Count: n}
	}
	row := w.meta.row(e)
	if row == nil {
		return EntityNotFoundError{Entity: e}
	}
	if pending, ok := w.ops.pendingCounts[e]; ok {
		if n == pending.newCount {
			return nil
		}
		if n == pending.oldCount {
			delete(w.ops.pendingCounts, e)
			w.markRefresh()
			return nil
		}
		pending.newCount = n
		w.ops.pendingCounts[e] = pending
		w.markRefresh()
		return nil
	}
	if n == row.count {
		return nil
	}
	w.ops.pendingCounts[e] = countChange{oldCount: row.count, newCount: n}
	w.markRefresh()
	return nil
}

// InstanceCount reports e's applied instance count, zero for dead ids.
func (w *World) InstanceCount(e Entity) int {
	count, _ := w.meta.EntityCount(e)
	return count
}

// EntityOffset reports e's absolute offset into every column.
func (w *World) EntityOffset(e Entity) (int, bool) {
	return w.meta.EntityOffset(e)
}

// EntityExists reports whether e is live. Pending-delete entities still
// exist until their deletion is processed.
func (w *World) EntityExists(e Entity) bool {
	return w.meta.EntityExists(e)
}

// Alive reports the number of live entities.
func (w *World) Alive() int {
	return len(w.meta.index)
}

// FragmentsOf yields e's attached fragment types in registration order.
func (w *World) FragmentsOf(e Entity) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		if !w.meta.EntityExists(e) || int(e) >= len(w.membership) {
			return
		}
		m := w.membership[e]
		for _, bit := range w.fragmentOrder {
			if m.Contains(bit) {
				if !yield(w.registry[bit]) {
					return
				}
			}
		}
	}
}

// ProcessPendingDeletes drains the deferred delete queue: fragment removal
// hooks run, the tree node is removed with its children re-parented, the
// metadata row is tombstoned for the next reflow to compact, and the id
// returns to the free list. This is the only place ids become reusable.
func (w *World) ProcessPendingDeletes() {
	if len(w.ops.pendingDeletes) == 0 {
		return
	}
	reclaimed := 0
	for _, e := range w.ops.pendingDeletes {
		row := w.meta.row(e)
		if row == nil {
			continue
		}
		for _, f := range iter_util.Collect(w.FragmentsOf(e)) {
			if sto := w.storeFor(f); sto != nil {
				sto.removeEntity(row.offset, row.count)
			}
		}
		w.tree.Remove(e)
		w.membership[e] = mask.Mask{}
		delete(w.ops.pendingCounts, e)
		w.meta.release(e)
		w.freeIDs = append(w.freeIDs, e)
		reclaimed++
	}
	w.ops.pendingDeletes = w.ops.pendingDeletes[:0]
	w.layoutGen++
	w.markRefresh()
	w.log.Debug("processed pending deletes", zap.Int("reclaimed", reclaimed))
}
