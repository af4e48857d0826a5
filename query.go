package lattice

import (
	"fmt"
	"iter"
	"slices"

	"github.com/TheBitDrifter/mask"
)

// Query is a cached, re-derivable list of entities whose membership is a
// superset of a fixed required fragment set. Queries are pure read-side
// views: they never mutate entities or fragments and are sources of nothing.
type Query struct {
	world    *World
	required []Fragment
	reqMask  mask.Mask
	matches  []EntityRef
	gen      uint64
	track    bool
	previous map[Entity]struct{}
	released bool
}

// NewQuery returns a query over the given required fragment set. Identical
// requirement sets share one cached query.
func (w *World) NewQuery(frags ...Fragment) *Query {
	var reqMask mask.Mask
	bits := make([]uint32, 0, len(frags))
	for _, f := range frags {
		w.schema.Register(f)
		bit := w.schema.RowIndexFor(f)
		reqMask.Mark(bit)
		bits = append(bits, bit)
	}
	slices.Sort(bits)
	key := fmt.Sprint(bits)

	if idx, found := w.queryCache.GetIndex(key); found {
		cached := *w.queryCache.GetItem(idx)
		if !cached.released {
			return cached
		}
	}

	q := &Query{
		world:    w,
		required: slices.Clone(frags),
		reqMask:  reqMask,
		gen:      w.refreshGen - 1, // force the first derivation
	}
	if _, err := w.queryCache.Register(key, q); err != nil {
		w.log.Warn("query cache full; query will not be deduplicated")
	}
	w.queries = append(w.queries, q)
	return q
}

// update rebuilds the match list by scanning live entities' membership in
// insertion order.
func (q *Query) update() {
	q.matches = q.matches[:0]
	for i := range q.world.meta.rows {
		r := &q.world.meta.rows[i]
		if r.dead {
			continue
		}
		e := r.entity
		if int(e) >= len(q.world.membership) {
			continue
		}
		if q.world.membership[e].ContainsAll(q.reqMask) {
			q.matches = append(q.matches, EntityRef{Entity: e, Offset: r.offset, Count: r.count})
		}
	}
	q.gen = q.world.refreshGen
}

func (q *Query) ensureFresh() {
	if q.gen != q.world.refreshGen {
		q.update()
	}
}

// MatchingEntities returns the current matches in entity insertion order,
// re-deriving them first if any membership-affecting operation happened
// since the last derivation. The slice is reused across refreshes.
func (q *Query) MatchingEntities() []EntityRef {
	q.ensureFresh()
	return q.matches
}

// Count reports the number of matching entities.
func (q *Query) Count() int {
	return len(q.MatchingEntities())
}

// Entities yields the current matches.
func (q *Query) Entities() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		for _, ref := range q.MatchingEntities() {
			if !yield(ref) {
				return
			}
		}
	}
}

// TrackChanges enables edge-triggered enter/exit reporting via
// ProcessEntityChanges. The baseline is the match set at the time of the
// call.
func (q *Query) TrackChanges() {
	q.track = true
	q.previous = make(map[Entity]struct{})
	for _, ref := range q.MatchingEntities() {
		q.previous[ref.Entity] = struct{}{}
	}
}

// ProcessEntityChanges reports entities that started or stopped matching
// since the previous call. Reading consumes the delta.
func (q *Query) ProcessEntityChanges() (entered, exited []Entity) {
	if !q.track {
		return nil, nil
	}
	q.ensureFresh()
	current := make(map[Entity]struct{}, len(q.matches))
	for _, ref := range q.matches {
		current[ref.Entity] = struct{}{}
		if _, was := q.previous[ref.Entity]; !was {
			entered = append(entered, ref.Entity)
		}
	}
	for e := range q.previous {
		if _, still := current[e]; !still {
			exited = append(exited, e)
		}
	}
	slices.Sort(exited)
	q.previous = current
	return entered, exited
}

// Release detaches the query from the world. Released queries stop being
// refreshed; a later NewQuery with the same requirements builds a fresh one.
func (q *Query) Release() {
	if q.released {
		return
	}
	q.released = true
	q.world.queries = slices.DeleteFunc(q.world.queries, func(other *Query) bool {
		return other == q
	})
}
