package lattice

import (
	"cmp"
	"slices"

	"go.uber.org/zap"
)

// reflowChange is one entity's count transition resolved against the old
// layout. Tombstoned rows participate as transitions to zero so deletion
// compacts through the same machinery; their entity field is NoEntity.
type reflowChange struct {
	offset   int
	oldCount int
	newCount int
	entity   Entity
}

// FlushInstanceCountChanges applies every deferred instance-count change in
// one O(n) pass per column. With an empty pending map and no tombstones it
// is a strict no-op.
//
// The batch is applied with a difference array over the old index domain:
// each change contributes (new - old) at the point just past the entity's
// previously-occupied block, and the prefix sum turns that into the net
// displacement of every old slot. Slots are then moved in two passes whose
// order is load-bearing: growing targets high to low, shrinking targets low
// to high, so no slot is overwritten before it has been read. Slots inside a
// shrinking entity's dropped range carry no valid data and are never copied.
func (w *World) FlushInstanceCountChanges() {
	if len(w.ops.pendingCounts) == 0 && w.meta.deadRows == 0 {
		return
	}

	// Offsets may be stale from earlier structural changes; recompute the
	// authoritative old layout before building any shift information.
	w.meta.UpdateOffsets()

	changes := make([]reflowChange, 0, len(w.ops.pendingCounts)+w.meta.deadRows)
	for i := range w.meta.rows {
		r := &w.meta.rows[i]
		if r.dead {
			changes = append(changes, reflowChange{
				offset: r.offset, oldCount: r.count, newCount: 0, entity: NoEntity,
			})
		}
	}
	for e, pending := range w.ops.pendingCounts {
		row := w.meta.row(e)
		if row == nil {
			continue
		}
		changes = append(changes, reflowChange{
			offset: row.offset, oldCount: row.count, newCount: pending.newCount, entity: e,
		})
	}
	slices.SortFunc(changes, func(a, b reflowChange) int {
		return cmp.Compare(a.offset, b.offset)
	})

	oldTotal := w.meta.Total()
	newTotal := oldTotal
	for _, c := range changes {
		newTotal += c.newCount - c.oldCount
	}

	// Every column must reach the common high-water mark before any slot
	// moves; clamping against per-column sizes mid-shift can drop data.
	stores := w.allStores()
	limit := max(newTotal, oldTotal)
	for _, sto := range stores {
		sto.resize(limit)
	}
	w.meta.Resize(int(w.nextID))

	shift := make([]int, oldTotal+1)
	dropped := make([]bool, oldTotal)
	for _, c := range changes {
		at := c.offset + c.oldCount
		if at <= oldTotal {
			shift[at] += c.newCount - c.oldCount
		}
		for i := c.offset + c.newCount; i < c.offset+c.oldCount && i < oldTotal; i++ {
			dropped[i] = true
		}
	}
	for i := 1; i <= oldTotal; i++ {
		shift[i] += shift[i-1]
	}

	// Expansion pass: high to low.
	for i := oldTotal - 1; i >= 0; i-- {
		if shift[i] <= 0 || dropped[i] {
			continue
		}
		to := w.clampShiftTarget(i, i+shift[i], limit)
		for _, sto := range stores {
			sto.copyInstance(to, i)
		}
	}
	// Contraction pass: low to high.
	for i := 0; i < oldTotal; i++ {
		if shift[i] >= 0 || dropped[i] {
			continue
		}
		to := w.clampShiftTarget(i, i+shift[i], limit)
		for _, sto := range stores {
			sto.copyInstance(to, i)
		}
	}

	// Commit the new layout: apply new counts, drop tombstones, recompute
	// offsets from the prefix sum.
	for _, c := range changes {
		if c.entity != NoEntity {
			w.meta.SetEntityInstanceCount(c.entity, c.newCount)
		}
	}
	w.meta.compact()
	w.meta.UpdateOffsets()

	// Newly grown slots hold no valid data yet; replicate each grown
	// entity's first slot into them.
	for _, c := range changes {
		if c.entity == NoEntity || c.newCount <= c.oldCount {
			continue
		}
		offset, ok := w.meta.EntityOffset(c.entity)
		if !ok {
			continue
		}
		if c.oldCount == 0 {
			// Nothing valid to replicate from; start the block zeroed.
			for _, sto := range stores {
				sto.removeEntity(offset, c.newCount)
			}
			continue
		}
		for s := offset + c.oldCount; s < offset+c.newCount; s++ {
			for _, sto := range stores {
				sto.copyInstance(s, offset)
			}
		}
	}

	// Zero the reclaimed tail so stale copies do not linger past the layout.
	if newTotal < oldTotal {
		for _, sto := range stores {
			sto.removeEntity(newTotal, oldTotal-newTotal)
		}
	}

	for _, sto := range stores {
		sto.markGPUDirty()
	}
	clear(w.ops.pendingCounts)
	w.layoutGen++
	w.markRefresh()
	w.log.Debug("reflowed instance counts",
		zap.Int("changes", len(changes)),
		zap.Int("oldSize", oldTotal),
		zap.Int("newSize", newTotal),
	)
}

// clampShiftTarget keeps a shift target inside the resized domain. With the
// common high-water resize above this never fires; it remains as the last
// line of defense against corrupting adjacent entities.
func (w *World) clampShiftTarget(from, to, limit int) int {
	clamped := min(max(to, 0), limit-1)
	if clamped != to {
		w.log.Warn("clamped reflow shift target",
			zap.Int("from", from),
			zap.Int("to", to),
			zap.Int("clamped", clamped),
		)
	}
	return clamped
}
