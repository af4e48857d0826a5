package lattice

import "unsafe"

var _ fragmentStore = &Store[struct{}]{}

// Store is one fragment type's column: a flat slice of T indexed by absolute
// offset. It grows geometrically and never shrinks; the metadata table is the
// sole authority on which slots are live.
type Store[T any] struct {
	meta        *metadataTable
	slots       []T
	clone       func(dst, src *T)
	initialized bool
	gpuDirty    bool
}

func (s *Store[T]) initialize() {
	if s.initialized {
		return
	}
	s.slots = make([]T, 0, Config.initialSlotCapacity)
	s.initialized = true
}

// resize grows the column to at least n slots, zero-filling new ones.
func (s *Store[T]) resize(n int) {
	if n <= len(s.slots) {
		return
	}
	if n <= cap(s.slots) {
		s.slots = s.slots[:n]
		return
	}
	grown := make([]T, n, max(n, 2*cap(s.slots)))
	copy(grown, s.slots)
	s.slots = grown
	s.gpuDirty = true
}

func (s *Store[T]) size() int {
	return len(s.slots)
}

// removeEntity zeroes an entity's slot range. Storage is kept; the slots are
// reclaimed by the next reflow pass.
func (s *Store[T]) removeEntity(offset, count int) {
	var zero T
	for i := offset; i < offset+count && i < len(s.slots); i++ {
		s.slots[i] = zero
	}
	s.gpuDirty = true
}

// copyInstance is the reflow primitive: a field-by-field copy between two
// absolute offsets.
func (s *Store[T]) copyInstance(to, from int) {
	if to < 0 || from < 0 || to >= len(s.slots) || from >= len(s.slots) {
		return
	}
	s.slots[to] = s.slots[from]
	s.gpuDirty = true
}

// cloneInstance copies like copyInstance but runs the fragment's deep-copy
// hook so the destination is independent of the source.
func (s *Store[T]) cloneInstance(to, from int) {
	if to < 0 || from < 0 || to >= len(s.slots) || from >= len(s.slots) {
		return
	}
	s.slots[to] = s.slots[from]
	if s.clone != nil {
		s.clone(&s.slots[to], &s.slots[from])
	}
	s.gpuDirty = true
}

func (s *Store[T]) markGPUDirty() {
	s.gpuDirty = true
}

func (s *Store[T]) stride() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// gpuBytes returns a byte view aliasing the column's backing array, limited
// to the first limit slots. The view stays referentially stable until the
// column is resized.
func (s *Store[T]) gpuBytes(limit int) []byte {
	n := min(limit, len(s.slots))
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s.slots[0])), n*s.stride())
}

// View is a thin index wrapper over an entity's slot range in one column.
// It holds no data of its own and is safe to construct per access.
type View[T any] struct {
	store  *Store[T]
	offset int
	count  int
}

// Count reports how many instance slots the view covers. Zero is valid and
// means there is nothing to iterate.
func (v View[T]) Count() int {
	return v.count
}

// At returns a pointer to the i'th instance slot, or nil when i is out of
// range.
func (v View[T]) At(i int) *T {
	if i < 0 || i >= v.count {
		return nil
	}
	return &v.store.slots[v.offset+i]
}

// First returns the entity's first instance slot, or nil for a zero-count
// view.
func (v View[T]) First() *T {
	return v.At(0)
}

// Slice exposes the entity's slots directly. The slice aliases the column and
// is invalidated by the next flush.
func (v View[T]) Slice() []T {
	return v.store.slots[v.offset : v.offset+v.count]
}
