package lattice

import "github.com/TheBitDrifter/table"

type factory struct{}

var Factory factory

func (f factory) NewWorld(opts ...WorldOption) *World {
	return newWorld(opts...)
}

func (f factory) NewTree() *Tree {
	return newTree()
}

func (f factory) NewCursor(query *Query) *Cursor {
	return newCursor(query)
}

// FactoryNewFragment creates a data-bearing fragment identity for T. The
// column itself is allocated lazily by a world on first attachment.
func FactoryNewFragment[T any](opts ...FragmentOption[T]) AccessibleFragment[T] {
	frag := AccessibleFragment[T]{
		Fragment: table.FactoryNewElementType[T](),
	}
	for _, opt := range opts {
		opt(&frag)
	}
	return frag
}

// FactoryNewTag creates a membership-only fragment identity for T. Use an
// empty struct type as the marker.
func FactoryNewTag[T any]() Tag {
	return Tag{Fragment: table.FactoryNewElementType[T]()}
}

func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
