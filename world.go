package lattice

import (
	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
	"go.uber.org/zap"
)

// World owns entity identity, fragment membership, and the shared slot
// layout. All mutation belongs to a single logical simulation step; there is
// no internal locking beyond the cooperative iteration guard.
type World struct {
	schema        table.Schema
	meta          *metadataTable
	stores        map[uint32]fragmentStore
	registry      map[uint32]Fragment
	fragmentOrder []uint32
	membership    []mask.Mask

	nextID  Entity
	freeIDs []Entity

	ops        opQueue
	refreshGen uint64
	layoutGen  uint64

	queries    []*Query
	queryCache Cache[*Query]

	tree      *Tree
	hierarchy *HierarchyFragment

	locked bool
	log    *zap.Logger
}

// WorldOption configures a world at creation time.
type WorldOption func(*World)

// WithLogger attaches a structured logger; flush points log at Debug and
// reflow clamps at Warn. The default is a nop logger.
func WithLogger(log *zap.Logger) WorldOption {
	return func(w *World) {
		w.log = log
	}
}

func newWorld(opts ...WorldOption) *World {
	w := &World{
		schema:     table.Factory.NewSchema(),
		meta:       newMetadataTable(),
		stores:     make(map[uint32]fragmentStore),
		registry:   make(map[uint32]Fragment),
		ops:        newOpQueue(),
		queryCache: FactoryNewCache[*Query](Config.queryCacheCapacity),
		tree:       newTree(),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Metadata exposes the entity layout table.
func (w *World) Metadata() Metadata {
	return w.meta
}

// SceneTree exposes the world-owned scene graph. Nodes are removed
// automatically when their entity's deletion is processed.
func (w *World) SceneTree() *Tree {
	return w.tree
}

// Hierarchy returns the fragment that uploads the scene tree to the GPU,
// creating it on first use.
func (w *World) Hierarchy() *HierarchyFragment {
	if w.hierarchy == nil {
		w.hierarchy = newHierarchyFragment(w)
		w.hierarchy.resize(w.meta.Total())
	}
	return w.hierarchy
}

func (w *World) Locked() bool {
	return w.locked
}

// Lock guards against structural mutation during iteration. Deferred
// operations (deletes, count changes) are always accepted; they only take
// effect at the flush points.
func (w *World) Lock() {
	w.locked = true
}

func (w *World) Unlock() {
	w.locked = false
}

// Update runs the three per-frame flush points in their required order:
// pending deletes, instance-count reflow, query refresh. Direct reads of
// column data are only stable after Update returns.
func (w *World) Update() error {
	if w.locked {
		return LockedWorldError{}
	}
	w.ProcessPendingDeletes()
	w.FlushInstanceCountChanges()
	w.RefreshQueries()
	return nil
}

// RefreshQueries rebuilds every registered query whose cache is stale. Cheap
// when nothing membership-affecting happened since the last refresh.
func (w *World) RefreshQueries() {
	refreshed := 0
	for _, q := range w.queries {
		if q.gen != w.refreshGen {
			q.update()
			refreshed++
		}
	}
	if refreshed > 0 {
		w.log.Debug("refreshed query caches", zap.Int("queries", refreshed))
	}
}

func (w *World) markRefresh() {
	w.refreshGen++
}

func (w *World) storeFor(f Fragment) fragmentStore {
	return w.stores[w.schema.RowIndexFor(f)]
}

// allStores yields every initialized column, including the hierarchy
// fragment's backing arrays, for layout-wide passes.
func (w *World) allStores() []fragmentStore {
	out := make([]fragmentStore, 0, len(w.stores)+1)
	for _, sto := range w.stores {
		out = append(out, sto)
	}
	if w.hierarchy != nil {
		out = append(out, w.hierarchy)
	}
	return out
}

func (w *World) ensureMembership(e Entity) {
	for int(e) >= len(w.membership) {
		w.membership = append(w.membership, mask.Mask{})
	}
}
