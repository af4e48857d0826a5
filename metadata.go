package lattice

var _ Metadata = &metadataTable{}

// entityFlags groups per-entity lifecycle markers. Explicit fields keep
// unrelated markers from colliding on a shared bitfield.
type entityFlags struct {
	pendingDelete bool
}

// metaRow is one entity's layout record. Rows are kept in insertion order;
// offsets are always the prefix sum of counts in that order. A dead row is a
// tombstone: its identity is released but its slots still occupy the layout
// until the next reflow compacts them away.
type metaRow struct {
	entity Entity
	offset int
	count  int
	flags  entityFlags
	dead   bool
}

type metadataTable struct {
	rows         []metaRow
	index        map[Entity]int
	deadRows     int
	staging      []uint32
	stagingDirty bool
}

func newMetadataTable() *metadataTable {
	return &metadataTable{
		index: make(map[Entity]int),
	}
}

// register appends a row for e at the current tail of the layout and returns
// its absolute offset. The new entity starts with a single instance slot.
func (m *metadataTable) register(e Entity) int {
	offset := m.Total()
	m.index[e] = len(m.rows)
	m.rows = append(m.rows, metaRow{entity: e, offset: offset, count: 1})
	m.stagingDirty = true
	return offset
}

// release tombstones e's row. The row keeps its count so the next reflow can
// shift later entities down over the freed slots.
func (m *metadataTable) release(e Entity) {
	i, ok := m.index[e]
	if !ok {
		return
	}
	m.rows[i].dead = true
	m.rows[i].flags = entityFlags{}
	delete(m.index, e)
	m.deadRows++
	m.stagingDirty = true
}

func (m *metadataTable) row(e Entity) *metaRow {
	i, ok := m.index[e]
	if !ok {
		return nil
	}
	return &m.rows[i]
}

func (m *metadataTable) EntityExists(e Entity) bool {
	_, ok := m.index[e]
	return ok
}

func (m *metadataTable) EntityOffset(e Entity) (int, bool) {
	r := m.row(e)
	if r == nil {
		return 0, false
	}
	return r.offset, true
}

func (m *metadataTable) EntityCount(e Entity) (int, bool) {
	r := m.row(e)
	if r == nil {
		return 0, false
	}
	return r.count, true
}

// SetEntityInstanceCount writes n into e's row without moving any data.
// Offsets of later rows are stale afterwards; callers must follow up with
// UpdateOffsets once the whole batch is applied.
func (m *metadataTable) SetEntityInstanceCount(e Entity, n int) {
	r := m.row(e)
	if r == nil || n < 0 {
		return
	}
	r.count = n
	m.stagingDirty = true
}

func (m *metadataTable) setPendingDelete(e Entity) bool {
	r := m.row(e)
	if r == nil || r.flags.pendingDelete {
		return false
	}
	r.flags.pendingDelete = true
	return true
}

// UpdateOffsets recomputes every row's offset as the prefix sum of instance
// counts in insertion order. Tombstones participate: their slots are still
// part of the physical layout until compaction.
func (m *metadataTable) UpdateOffsets() {
	offset := 0
	for i := range m.rows {
		m.rows[i].offset = offset
		offset += m.rows[i].count
	}
	m.stagingDirty = true
}

// compact drops tombstoned rows and restores the offset/index invariants.
// Only the reflow pass calls this, after slot data has been shifted to match.
func (m *metadataTable) compact() {
	if m.deadRows == 0 {
		return
	}
	live := m.rows[:0]
	for _, r := range m.rows {
		if !r.dead {
			live = append(live, r)
		}
	}
	m.rows = live
	m.deadRows = 0
	m.Rebuild()
}

// Rebuild reconstructs the entity index and offsets from the row order.
func (m *metadataTable) Rebuild() {
	clear(m.index)
	for i, r := range m.rows {
		if !r.dead {
			m.index[r.entity] = i
		}
	}
	m.UpdateOffsets()
}

// Total reports the layout high-water mark: one past the last occupied slot.
func (m *metadataTable) Total() int {
	if len(m.rows) == 0 {
		return 0
	}
	last := m.rows[len(m.rows)-1]
	return last.offset + last.count
}

// Resize grows the staging buffer to cover at least n entity ids.
func (m *metadataTable) Resize(n int) {
	if n*2 <= len(m.staging) {
		return
	}
	grown := make([]uint32, max(n*2, 2*len(m.staging)))
	copy(grown, m.staging)
	m.staging = grown
	m.stagingDirty = true
}

// Write flushes the offset table into a GPU-visible staging buffer indexed by
// entity id: staging[2*id] holds the offset, staging[2*id+1] the count. The
// returned slice is reused across calls; no rebuild happens unless the table
// changed since the last Write.
func (m *metadataTable) Write() []uint32 {
	if !m.stagingDirty {
		return m.staging
	}
	maxID := Entity(-1)
	for e := range m.index {
		if e > maxID {
			maxID = e
		}
	}
	m.Resize(int(maxID) + 1)
	for i := range m.staging {
		m.staging[i] = 0
	}
	for e, i := range m.index {
		r := m.rows[i]
		m.staging[2*int(e)] = uint32(r.offset)
		m.staging[2*int(e)+1] = uint32(r.count)
	}
	m.stagingDirty = false
	return m.staging
}
