/*
Package lattice provides instanced columnar entity storage for games and simulations.

Lattice manages the mapping from logical entities to flat, GPU-uploadable component
data. Unlike archetype-based storage, every fragment (component type) owns a single
flat column over a shared index domain: each entity holds a contiguous run of
instance slots starting at its absolute offset, supporting GPU-instanced draws of a
single logical entity.

Core Concepts:

  - Entity: A unique identifier that represents a simulated object.
  - Fragment: A component type's columnar storage plus its lifecycle hooks.
  - Absolute offset: Where an entity's instance slots begin in every column.
  - Query: A cached list of entities matching a required fragment set.
  - Tree: A pooled scene graph keyed by entity, flattened breadth-first for GPU
    hierarchy passes.

Mutation is frame-stepped. Deletes and instance-count changes are deferred and
applied at three ordered flush points handled by World.Update: pending deletes are
reclaimed, instance-count changes are reflowed in one O(n) pass per column, and
dirty query caches are rebuilt.

Basic Usage:

	world := lattice.Factory.NewWorld()

	position := lattice.FactoryNewFragment[Position]()
	sprite := lattice.FactoryNewFragment[Sprite]()

	e, _ := world.CreateEntity()
	world.AddFragment(e, position)
	world.AddFragment(e, sprite)

	// Give the entity 16 instanced slots, applied at the next flush.
	world.SetInstanceCount(e, 16)
	world.Update()

	query := world.NewQuery(position, sprite)
	cursor := lattice.Factory.NewCursor(query)

	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		pos.X += 1
	}

Lattice is the storage core for instanced scene rendering but also works as a
standalone library.
*/
package lattice
