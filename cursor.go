package lattice

import "iter"

var _ iCursor = &Cursor{}

// Cursor iterates a query's matching entities. Starting iteration locks the
// world so structural mutation cannot invalidate offsets mid-walk; draining
// the cursor (or calling Reset) unlocks it.
type Cursor struct {
	query       *Query
	refs        []EntityRef
	pos         int
	initialized bool
}

func newCursor(query *Query) *Cursor {
	return &Cursor{query: query, pos: -1}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.refs = c.query.MatchingEntities()
	c.query.world.Lock()
	c.pos = -1
	c.initialized = true
}

// Next advances to the next matching entity, returning false once the
// matches are exhausted.
func (c *Cursor) Next() bool {
	c.initialize()
	c.pos++
	if c.pos < len(c.refs) {
		return true
	}
	c.Reset()
	return false
}

// Ref returns the match at the cursor position.
func (c *Cursor) Ref() EntityRef {
	ref, _ := c.currentRef()
	return ref
}

// Entity returns the entity at the cursor position, NoEntity if the cursor
// is not positioned on a match.
func (c *Cursor) Entity() Entity {
	ref, ok := c.currentRef()
	if !ok {
		return NoEntity
	}
	return ref.Entity
}

func (c *Cursor) currentRef() (EntityRef, bool) {
	if !c.initialized || c.pos < 0 || c.pos >= len(c.refs) {
		return EntityRef{}, false
	}
	return c.refs[c.pos], true
}

// Entities yields the query's matches, locking for the duration of the walk.
func (c *Cursor) Entities() iter.Seq[EntityRef] {
	return func(yield func(EntityRef) bool) {
		c.initialize()
		for c.pos+1 < len(c.refs) {
			c.pos++
			if !yield(c.refs[c.pos]) {
				c.Reset()
				return
			}
		}
		c.Reset()
	}
}

// TotalMatched reports how many entities the cursor will visit.
func (c *Cursor) TotalMatched() int {
	if c.initialized {
		return len(c.refs)
	}
	return c.query.Count()
}

// Reset rewinds the cursor and releases the iteration lock.
func (c *Cursor) Reset() {
	c.refs = nil
	c.pos = -1
	c.initialized = false
	c.query.world.Unlock()
}
