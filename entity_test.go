package lattice

import (
	"testing"

	iter_util "github.com/TheBitDrifter/util/iter"
)

// Test fragment types
type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Current, Max int
}

type Waypoints struct {
	Points []Position
}

type Frozen struct{}

func cloneWaypoints(dst, src *Waypoints) {
	dst.Points = make([]Position, len(src.Points))
	copy(dst.Points, src.Points)
}

func TestEntityCreation(t *testing.T) {
	tests := []struct {
		name        string
		entityCount int
	}{
		{"Single entity", 1},
		{"Small batch", 5},
		{"Large batch", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world := Factory.NewWorld()

			for i := 0; i < tt.entityCount; i++ {
				e, err := world.CreateEntity()
				if err != nil {
					t.Fatalf("CreateEntity() error = %v", err)
				}
				if e != Entity(i) {
					t.Errorf("CreateEntity() = %d, want %d", e, i)
				}
				if !world.EntityExists(e) {
					t.Errorf("entity %d does not exist after creation", e)
				}
				if world.InstanceCount(e) != 1 {
					t.Errorf("InstanceCount(%d) = %d, want 1", e, world.InstanceCount(e))
				}
			}
			if world.Alive() != tt.entityCount {
				t.Errorf("Alive() = %d, want %d", world.Alive(), tt.entityCount)
			}
		})
	}
}

func TestEntityDeletionAndIDReuse(t *testing.T) {
	world := Factory.NewWorld()

	e0, _ := world.CreateEntity()
	e1, _ := world.CreateEntity()
	e2, _ := world.CreateEntity()

	world.DeleteEntity(e1)

	// Deferred: the entity stays queryable until the flush runs.
	if !world.EntityExists(e1) {
		t.Error("pending-delete entity should still exist before the flush")
	}

	// Double delete is a silent no-op.
	world.DeleteEntity(e1)

	world.ProcessPendingDeletes()

	if world.EntityExists(e1) {
		t.Error("entity still exists after ProcessPendingDeletes")
	}
	if !world.EntityExists(e0) || !world.EntityExists(e2) {
		t.Error("unrelated entities were reclaimed")
	}

	// The freed id is recycled before a new one is minted.
	reused, err := world.CreateEntity()
	if err != nil {
		t.Fatalf("CreateEntity() error = %v", err)
	}
	if reused != e1 {
		t.Errorf("CreateEntity() = %d, want recycled id %d", reused, e1)
	}
}

func TestDeleteUnknownEntityIsNoOp(t *testing.T) {
	world := Factory.NewWorld()
	world.DeleteEntity(42)
	world.ProcessPendingDeletes()
	if world.Alive() != 0 {
		t.Errorf("Alive() = %d, want 0", world.Alive())
	}
}

func TestFragmentAddRemove(t *testing.T) {
	posFrag := FactoryNewFragment[Position]()
	velFrag := FactoryNewFragment[Velocity]()

	tests := []struct {
		name       string
		add        []Fragment
		remove     []Fragment
		wantAddErr bool
		wantRemErr bool
		finalCount int
	}{
		{"Add one", []Fragment{posFrag}, nil, false, false, 1},
		{"Add two remove one", []Fragment{posFrag, velFrag}, []Fragment{posFrag}, false, false, 1},
		{"Remove missing", []Fragment{posFrag}, []Fragment{velFrag}, false, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world := Factory.NewWorld()
			e, _ := world.CreateEntity()

			for _, f := range tt.add {
				if err := world.AddFragment(e, f); (err != nil) != tt.wantAddErr {
					t.Errorf("AddFragment() error = %v, wantErr %v", err, tt.wantAddErr)
				}
			}
			for _, f := range tt.remove {
				if err := world.RemoveFragment(e, f); (err != nil) != tt.wantRemErr {
					t.Errorf("RemoveFragment() error = %v, wantErr %v", err, tt.wantRemErr)
				}
			}

			got := len(iter_util.Collect(world.FragmentsOf(e)))
			if got != tt.finalCount {
				t.Errorf("entity has %d fragments, want %d", got, tt.finalCount)
			}
		})
	}
}

func TestDoubleAddFragmentFails(t *testing.T) {
	world := Factory.NewWorld()
	posFrag := FactoryNewFragment[Position]()
	e, _ := world.CreateEntity()

	if err := world.AddFragment(e, posFrag); err != nil {
		t.Fatalf("first AddFragment() error = %v", err)
	}
	if err := world.AddFragment(e, posFrag); err == nil {
		t.Error("second AddFragment() should fail")
	}
}

func TestTags(t *testing.T) {
	world := Factory.NewWorld()
	frozen := FactoryNewTag[Frozen]()
	e, _ := world.CreateEntity()

	if world.HasTag(e, frozen) {
		t.Error("HasTag true before AddTag")
	}
	if err := world.AddTag(e, frozen); err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}
	if !world.HasTag(e, frozen) {
		t.Error("HasTag false after AddTag")
	}
	if err := world.RemoveTag(e, frozen); err != nil {
		t.Fatalf("RemoveTag() error = %v", err)
	}
	if world.HasTag(e, frozen) {
		t.Error("HasTag true after RemoveTag")
	}
}

func TestFragmentValues(t *testing.T) {
	world := Factory.NewWorld()
	posFrag := FactoryNewFragment[Position]()
	e, _ := world.CreateEntity()

	if got := posFrag.Get(world, e); got != nil {
		t.Errorf("Get on unattached fragment = %v, want nil", got)
	}

	if err := posFrag.AttachWithValue(world, e, Position{X: 1, Y: 2}); err != nil {
		t.Fatalf("AttachWithValue() error = %v", err)
	}

	pos := posFrag.Get(world, e)
	if pos == nil {
		t.Fatal("Get returned nil after attach")
	}
	if pos.X != 1 || pos.Y != 2 {
		t.Errorf("position = {%v, %v}, want {1, 2}", pos.X, pos.Y)
	}

	pos.X = 5
	if again := posFrag.Get(world, e); again.X != 5 {
		t.Errorf("write through pointer not visible: X = %v, want 5", again.X)
	}
}

func TestDuplicateEntityDeepCopy(t *testing.T) {
	world := Factory.NewWorld()
	posFrag := FactoryNewFragment[Position]()
	wayFrag := FactoryNewFragment[Waypoints](WithClone(cloneWaypoints))
	frozen := FactoryNewTag[Frozen]()

	src, _ := world.CreateEntity()
	posFrag.AttachWithValue(world, src, Position{X: 3, Y: 4})
	wayFrag.AttachWithValue(world, src, Waypoints{Points: []Position{{X: 1}, {X: 2}}})
	world.AddTag(src, frozen)

	dup, err := world.DuplicateEntity(src, 0)
	if err != nil {
		t.Fatalf("DuplicateEntity() error = %v", err)
	}

	// Values deep-equal at duplication time.
	if got := posFrag.Get(world, dup); got == nil || got.X != 3 || got.Y != 4 {
		t.Errorf("duplicated position = %v, want {3, 4}", got)
	}
	dupWay := wayFrag.Get(world, dup)
	if dupWay == nil || len(dupWay.Points) != 2 || dupWay.Points[1].X != 2 {
		t.Fatalf("duplicated waypoints = %v", dupWay)
	}
	if !world.HasTag(dup, frozen) {
		t.Error("tag not re-attached on duplicate")
	}

	// Independent thereafter: mutating one must not affect the other.
	srcWay := wayFrag.Get(world, src)
	srcWay.Points[0].X = 99
	if dupWay.Points[0].X == 99 {
		t.Error("duplicate shares backing storage with source")
	}
	dupPos := posFrag.Get(world, dup)
	dupPos.X = -1
	if posFrag.Get(world, src).X != 3 {
		t.Error("mutating the duplicate changed the source")
	}
}

func TestDuplicateEntityInstanceOutOfRange(t *testing.T) {
	world := Factory.NewWorld()
	e, _ := world.CreateEntity()

	if _, err := world.DuplicateEntity(e, 3); err == nil {
		t.Error("DuplicateEntity with out-of-range instance should fail")
	}
	if _, err := world.DuplicateEntity(99, 0); err == nil {
		t.Error("DuplicateEntity on dead id should fail")
	}
}

func TestDeleteReleasesTreeNode(t *testing.T) {
	world := Factory.NewWorld()
	parent, _ := world.CreateEntity()
	mid, _ := world.CreateEntity()
	leaf, _ := world.CreateEntity()

	tree := world.SceneTree()
	tree.Add(NoEntity, parent)
	tree.Add(parent, mid)
	tree.Add(mid, leaf)

	world.DeleteEntity(mid)
	world.ProcessPendingDeletes()

	if _, ok := tree.FindNode(mid); ok {
		t.Error("deleted entity still has a tree node")
	}
	got, ok := tree.Parent(leaf)
	if !ok || got != parent {
		t.Errorf("leaf parent = %d, %v, want %d", got, ok, parent)
	}
}

func TestLockedWorldRejectsStructuralMutation(t *testing.T) {
	world := Factory.NewWorld()
	posFrag := FactoryNewFragment[Position]()
	e, _ := world.CreateEntity()
	world.AddFragment(e, posFrag)

	world.Lock()
	defer world.Unlock()

	if _, err := world.CreateEntity(); err == nil {
		t.Error("CreateEntity while locked should fail")
	}
	if err := world.AddFragment(e, FactoryNewFragment[Velocity]()); err == nil {
		t.Error("AddFragment while locked should fail")
	}
	// Deferred operations are always accepted.
	world.DeleteEntity(e)
	if err := world.SetInstanceCount(e, 4); err != nil {
		t.Errorf("SetInstanceCount while locked error = %v", err)
	}
	if err := world.Update(); err == nil {
		t.Error("Update while locked should fail")
	}
}
