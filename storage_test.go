package foundry

import (
	"testing"

	"github.com/TheBitDrifter/table"
)

func newTestStorage() *Storage {
	return newStorage(table.Factory.NewSchema())
}

func TestStorageCreateEntityImmediate(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	vel := FactoryNewComponent[Velocity]()

	e := sto.alloc.Create(0)
	if err := sto.createEntityImmediate(e, pos, vel); err != nil {
		t.Fatalf("createEntityImmediate failed: %v", err)
	}

	arch, ok := sto.ArchetypeOf(e)
	if !ok {
		t.Fatalf("expected entity to resolve to an archetype")
	}
	if !sto.Has(e, pos) || !sto.Has(e, vel) {
		t.Errorf("expected entity to carry both registered components")
	}
	if arch.length() != 1 {
		t.Errorf("archetype length = %d, want 1", arch.length())
	}
}

func TestStorageReusesArchetypeForIdenticalComponentSets(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	vel := FactoryNewComponent[Velocity]()

	e1 := sto.alloc.Create(0)
	e2 := sto.alloc.Create(0)
	if err := sto.createEntityImmediate(e1, pos, vel); err != nil {
		t.Fatal(err)
	}
	// Reversed order must resolve to the same archetype.
	if err := sto.createEntityImmediate(e2, vel, pos); err != nil {
		t.Fatal(err)
	}

	a1, _ := sto.ArchetypeOf(e1)
	a2, _ := sto.ArchetypeOf(e2)
	if a1 != a2 {
		t.Errorf("expected identical component sets to share an archetype regardless of order")
	}
}

func TestStorageAddComponentMovesArchetype(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	vel := FactoryNewComponent[Velocity]()

	e := sto.alloc.Create(0)
	if err := sto.createEntityImmediate(e, pos); err != nil {
		t.Fatal(err)
	}
	before, _ := sto.ArchetypeOf(e)

	if err := sto.addComponentImmediate(e, vel); err != nil {
		t.Fatalf("addComponentImmediate failed: %v", err)
	}
	after, _ := sto.ArchetypeOf(e)

	if before == after {
		t.Errorf("expected entity to move to a new archetype after adding a component")
	}
	if !sto.Has(e, pos) || !sto.Has(e, vel) {
		t.Errorf("expected entity to carry both components after the move")
	}
}

func TestStorageAddComponentAlreadyPresentIsNoop(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()

	e := sto.alloc.Create(0)
	if err := sto.createEntityImmediate(e, pos); err != nil {
		t.Fatal(err)
	}
	before, _ := sto.ArchetypeOf(e)
	if err := sto.addComponentImmediate(e, pos); err != nil {
		t.Fatalf("expected no-op, got error: %v", err)
	}
	after, _ := sto.ArchetypeOf(e)
	if before != after {
		t.Errorf("adding an already-present component should not move the entity")
	}
}

func TestStorageRemoveComponentMovesArchetype(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	vel := FactoryNewComponent[Velocity]()

	e := sto.alloc.Create(0)
	if err := sto.createEntityImmediate(e, pos, vel); err != nil {
		t.Fatal(err)
	}
	if err := sto.removeComponentImmediate(e, vel); err != nil {
		t.Fatalf("removeComponentImmediate failed: %v", err)
	}
	if sto.Has(e, vel) {
		t.Errorf("expected velocity to be removed")
	}
	if !sto.Has(e, pos) {
		t.Errorf("expected position to survive the removal")
	}
}

func TestStorageDestroyEntityImmediate(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()

	e := sto.alloc.Create(0)
	if err := sto.createEntityImmediate(e, pos); err != nil {
		t.Fatal(err)
	}

	var destroyed EntityID
	if err := sto.SetDestroyCallback(e, func(id EntityID) { destroyed = id }); err != nil {
		t.Fatalf("SetDestroyCallback failed: %v", err)
	}

	if err := sto.destroyEntityImmediate(e); err != nil {
		t.Fatalf("destroyEntityImmediate failed: %v", err)
	}
	if _, ok := sto.ArchetypeOf(e); ok {
		t.Errorf("expected entity to have no archetype after destruction")
	}
	if destroyed != e {
		t.Errorf("expected destroy callback invoked with %v, got %v", e, destroyed)
	}
}

func TestStorageOperationsOnStaleEntityFail(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	ghost := NewEntityID(999, 0)

	if err := sto.addComponentImmediate(ghost, pos); err == nil {
		t.Errorf("expected StaleEntityError for an entity never created")
	}
	if err := sto.removeComponentImmediate(ghost, pos); err == nil {
		t.Errorf("expected StaleEntityError for an entity never created")
	}
}

func TestStorageNewEntitiesBulkCreate(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()

	ids, err := sto.NewEntities(0, 5, pos)
	if err != nil {
		t.Fatalf("NewEntities failed: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("expected 5 entities, got %d", len(ids))
	}
	seen := make(map[EntityID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate entity ID %v returned", id)
		}
		seen[id] = true
		if !sto.Has(id, pos) {
			t.Errorf("entity %v missing its component", id)
		}
	}
}
