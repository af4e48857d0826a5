package lattice

import "fmt"

type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is currently locked"
}

type EntityNotFoundError struct {
	Entity Entity
}

func (e EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity does not exist: %d", e.Entity)
}

type FragmentExistsError struct {
	Fragment Fragment
}

func (e FragmentExistsError) Error() string {
	return fmt.Sprintf("fragment already attached to entity: %T", e.Fragment)
}

type FragmentNotFoundError struct {
	Fragment Fragment
}

func (e FragmentNotFoundError) Error() string {
	return fmt.Sprintf("fragment is not attached to entity: %T", e.Fragment)
}

type InvalidInstanceCountError struct {
	Entity Entity
	Count  int
}

func (e InvalidInstanceCountError) Error() string {
	return fmt.Sprintf("invalid instance count %d for entity %d", e.Count, e.Entity)
}

type InstanceOutOfRangeError struct {
	Entity   Entity
	Instance int
	Count    int
}

func (e InstanceOutOfRangeError) Error() string {
	return fmt.Sprintf("instance %d out of range for entity %d (count %d)", e.Instance, e.Entity, e.Count)
}

type NodeExistsError struct {
	Entity Entity
}

func (e NodeExistsError) Error() string {
	return fmt.Sprintf("entity already has a tree node: %d", e.Entity)
}

type HierarchyCycleError struct {
	Parent Entity
	Child  Entity
}

func (e HierarchyCycleError) Error() string {
	return fmt.Sprintf("moving entity %d under %d would create a cycle", e.Child, e.Parent)
}
