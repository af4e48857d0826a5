package lattice

import (
	"iter"

	"github.com/TheBitDrifter/table"
)

// Entity identifies one logical simulated object. Ids are non-negative and
// recycled through a free list after deletion is processed.
type Entity int

// NoEntity is the sentinel for "no entity", used for tree roots and absent
// parents.
const NoEntity Entity = -1

// Fragment is a component type identity. Data-bearing fragments are created
// with FactoryNewFragment, membership-only tags with FactoryNewTag.
type Fragment interface {
	table.ElementType
}

// Metadata is the per-entity layout table consumed by the World and by
// fragment columns: entity -> {absolute offset, instance count, flags}.
type Metadata interface {
	EntityOffset(Entity) (int, bool)
	EntityCount(Entity) (int, bool)
	SetEntityInstanceCount(Entity, int)
	EntityExists(Entity) bool
	UpdateOffsets()
	Resize(int)
	Rebuild()
	Write() []uint32
	Total() int
}

// fragmentStore is the capability contract every data-bearing column
// implements. Tags never allocate a store and so implement none of it.
type fragmentStore interface {
	initialize()
	resize(n int)
	size() int
	removeEntity(offset, count int)
	copyInstance(to, from int)
	cloneInstance(to, from int)
	markGPUDirty()
	gpuBytes(limit int) []byte
	stride() int
}

// storeProvider is implemented by fragment identities that carry columnar
// storage; the world calls it on first attachment.
type storeProvider interface {
	newStore(meta *metadataTable) fragmentStore
}

// GPUBuffer is an uploadable byte view of a column. Bytes aliases the
// column's backing array and is referentially stable until the column is
// resized.
type GPUBuffer struct {
	Bytes  []byte
	Stride int
	Count  int
}

// EntityRef is one query match: an entity plus its current layout window.
// Count may be zero; iteration over a zero-count ref covers nothing.
type EntityRef struct {
	Entity Entity
	Offset int
	Count  int
}

type iCursor interface {
	Entities() iter.Seq[EntityRef]
	Next() bool
}

// Cache is a small registry keyed by string, used to dedupe queries built
// from identical requirement sets.
type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	Register(string, T) (int, error)
}

// SimpleCache is the default Cache implementation.
type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}
