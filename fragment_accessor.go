package lattice

func (f AccessibleFragment[T]) storeOf(w *World) *Store[T] {
	sto := w.storeFor(f)
	if sto == nil {
		return nil
	}
	typed, ok := sto.(*Store[T])
	if !ok {
		return nil
	}
	return typed
}

// Get returns a pointer to e's first instance slot in this fragment's column,
// or nil when the fragment is not attached. Absence is an expected branch,
// never a fault.
func (f AccessibleFragment[T]) Get(w *World, e Entity) *T {
	v, ok := f.ViewOf(w, e)
	if !ok {
		return nil
	}
	return v.First()
}

// ViewOf returns a view over e's slot range. The second result is false when
// the fragment is not attached to e. Handing out a view marks the column
// GPU-dirty, since the caller is presumed to write through it.
func (f AccessibleFragment[T]) ViewOf(w *World, e Entity) (View[T], bool) {
	if !w.HasFragment(e, f) {
		return View[T]{}, false
	}
	sto := f.storeOf(w)
	if sto == nil {
		return View[T]{}, false
	}
	offset, _ := w.meta.EntityOffset(e)
	count, _ := w.meta.EntityCount(e)
	sto.resize(offset + count)
	sto.gpuDirty = true
	return View[T]{store: sto, offset: offset, count: count}, true
}

// AttachWithValue adds the fragment to e and initializes its first slot.
func (f AccessibleFragment[T]) AttachWithValue(w *World, e Entity, value T) error {
	if err := w.AddFragment(e, f); err != nil {
		return err
	}
	v, _ := f.ViewOf(w, e)
	if first := v.First(); first != nil {
		*first = value
	}
	return nil
}

// Snapshot returns a deep copy of one of e's instances, independent of the
// column thereafter.
func (f AccessibleFragment[T]) Snapshot(w *World, e Entity, instance int) (T, bool) {
	var zero T
	v, ok := f.ViewOf(w, e)
	if !ok {
		return zero, false
	}
	src := v.At(instance)
	if src == nil {
		return zero, false
	}
	out := *src
	if f.clone != nil {
		f.clone(&out, src)
	}
	return out, true
}

// GetFromCursor returns the first instance slot of the entity at the cursor
// position, or nil when the fragment is not attached there.
func (f AccessibleFragment[T]) GetFromCursor(c *Cursor) *T {
	ref, ok := c.currentRef()
	if !ok {
		return nil
	}
	return f.Get(c.query.world, ref.Entity)
}

// CheckCursor reports whether the fragment is attached at the cursor
// position.
func (f AccessibleFragment[T]) CheckCursor(c *Cursor) bool {
	ref, ok := c.currentRef()
	if !ok {
		return false
	}
	return c.query.world.HasFragment(ref.Entity, f)
}

// GPUData returns the column's uploadable byte view, limited to the live
// layout, plus whether a write occurred since the last call. Over-reporting
// dirty costs a redundant upload; the flag is only cleared here.
func (f AccessibleFragment[T]) GPUData(w *World) (GPUBuffer, bool) {
	sto := f.storeOf(w)
	if sto == nil {
		return GPUBuffer{}, false
	}
	dirty := sto.gpuDirty
	sto.gpuDirty = false
	total := w.meta.Total()
	return GPUBuffer{
		Bytes:  sto.gpuBytes(total),
		Stride: sto.stride(),
		Count:  min(total, len(sto.slots)),
	}, dirty
}
