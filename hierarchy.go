package lattice

import "unsafe"

// LayerUniform describes one depth layer of the flattened scene graph, in
// the shape a renderer pass binds per dispatch.
type LayerUniform struct {
	LayerCount  uint32
	LayerOffset uint32
	LayerIndex  uint32
}

var _ fragmentStore = &HierarchyFragment{}

// HierarchyFragment uploads the scene tree to the GPU. It keeps a per-slot
// parent-offset column over the shared index domain (so the reflow pass
// resizes and moves it like any other column) plus per-layer uniforms built
// from the breadth-first flatten. Both are derived data, rebuilt lazily when
// the tree or the layout changes.
type HierarchyFragment struct {
	world   *World
	parents []int32
	layers  []LayerUniform

	built            bool
	builtTreeVersion uint64
	builtLayoutGen   uint64
	gpuDirty         bool
}

func newHierarchyFragment(w *World) *HierarchyFragment {
	return &HierarchyFragment{world: w}
}

func (h *HierarchyFragment) initialize() {
	if h.parents == nil {
		h.parents = make([]int32, 0, Config.initialSlotCapacity)
	}
}

func (h *HierarchyFragment) resize(n int) {
	if n <= len(h.parents) {
		return
	}
	if n <= cap(h.parents) {
		h.parents = h.parents[:n]
		return
	}
	grown := make([]int32, n, max(n, 2*cap(h.parents)))
	copy(grown, h.parents)
	h.parents = grown
	h.gpuDirty = true
}

func (h *HierarchyFragment) size() int {
	return len(h.parents)
}

func (h *HierarchyFragment) removeEntity(offset, count int) {
	for i := offset; i < offset+count && i < len(h.parents); i++ {
		h.parents[i] = -1
	}
	h.gpuDirty = true
}

func (h *HierarchyFragment) copyInstance(to, from int) {
	if to < 0 || from < 0 || to >= len(h.parents) || from >= len(h.parents) {
		return
	}
	h.parents[to] = h.parents[from]
}

func (h *HierarchyFragment) cloneInstance(to, from int) {
	h.copyInstance(to, from)
}

func (h *HierarchyFragment) markGPUDirty() {
	h.gpuDirty = true
	h.built = false
}

func (h *HierarchyFragment) stride() int {
	return int(unsafe.Sizeof(int32(0)))
}

func (h *HierarchyFragment) gpuBytes(limit int) []byte {
	n := min(limit, len(h.parents))
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&h.parents[0])), n*h.stride())
}

// rebuild derives the parent-offset column and layer uniforms from the tree
// and the current layout.
func (h *HierarchyFragment) rebuild() {
	w := h.world
	total := w.meta.Total()
	h.resize(total)
	for i := 0; i < total; i++ {
		h.parents[i] = -1
	}
	for e := range w.meta.index {
		parent, ok := w.tree.Parent(e)
		if !ok || parent == NoEntity {
			continue
		}
		parentOffset, live := w.meta.EntityOffset(parent)
		if !live {
			continue
		}
		offset, _ := w.meta.EntityOffset(e)
		count, _ := w.meta.EntityCount(e)
		for s := offset; s < offset+count && s < len(h.parents); s++ {
			h.parents[s] = int32(parentOffset)
		}
	}

	_, layerCounts := w.tree.Flatten()
	h.layers = h.layers[:0]
	acc := uint32(0)
	for i, c := range layerCounts {
		h.layers = append(h.layers, LayerUniform{
			LayerCount:  uint32(c),
			LayerOffset: acc,
			LayerIndex:  uint32(i),
		})
		acc += uint32(c)
	}

	h.built = true
	h.builtTreeVersion = w.tree.version
	h.builtLayoutGen = w.layoutGen
	h.gpuDirty = true
}

// GPUData returns the parent-offset buffer over the live layout plus the
// per-layer uniforms, rebuilding them only if the tree or the layout changed
// since the last call. The final result reports (and consumes) the dirty
// flag.
func (h *HierarchyFragment) GPUData() (GPUBuffer, []LayerUniform, bool) {
	w := h.world
	if !h.built || h.builtTreeVersion != w.tree.version || h.builtLayoutGen != w.layoutGen {
		h.rebuild()
	}
	dirty := h.gpuDirty
	h.gpuDirty = false
	total := w.meta.Total()
	return GPUBuffer{
		Bytes:  h.gpuBytes(total),
		Stride: h.stride(),
		Count:  min(total, len(h.parents)),
	}, h.layers, dirty
}
