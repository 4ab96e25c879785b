package foundry

import "testing"

func TestStagingCreateEntityMaterializesAtSynchronize(t *testing.T) {
	sto := newTestStorage()
	p := newStagingPipeline(sto)
	pos := FactoryNewComponent[Position]()

	e := p.CreateEntity(0, pos)
	if e.IsNull() {
		t.Fatalf("CreateEntity should mint an ID immediately")
	}
	if _, ok := sto.ArchetypeOf(e); ok {
		t.Fatalf("entity must not be materialized before Synchronize")
	}

	if _, err := p.Synchronize([]WorkerID{0}); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	if _, ok := sto.ArchetypeOf(e); !ok {
		t.Errorf("expected entity materialized after Synchronize")
	}
}

func TestStagingAddRemoveAppliedAtSynchronize(t *testing.T) {
	sto := newTestStorage()
	p := newStagingPipeline(sto)
	pos := FactoryNewComponent[Position]()
	vel := FactoryNewComponent[Velocity]()

	e := p.CreateEntity(0, pos)
	if err := p.AddComponent(0, e, vel); err != nil {
		t.Fatalf("AddComponent failed: %v", err)
	}
	if _, err := p.Synchronize([]WorkerID{0}); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	if !sto.Has(e, pos) || !sto.Has(e, vel) {
		t.Errorf("expected both components present after synchronize")
	}

	if err := p.RemoveComponent(0, e, pos); err != nil {
		t.Fatalf("RemoveComponent failed: %v", err)
	}
	if _, err := p.Synchronize([]WorkerID{0}); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	if sto.Has(e, pos) {
		t.Errorf("expected position removed after second synchronize")
	}
}

func TestStagingDestroyAppliedAtSynchronize(t *testing.T) {
	sto := newTestStorage()
	p := newStagingPipeline(sto)
	pos := FactoryNewComponent[Position]()

	e := p.CreateEntity(0, pos)
	if _, err := p.Synchronize([]WorkerID{0}); err != nil {
		t.Fatal(err)
	}

	if err := p.DestroyEntity(0, e); err != nil {
		t.Fatalf("DestroyEntity failed: %v", err)
	}
	if _, err := p.Synchronize([]WorkerID{0}); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	if _, ok := sto.ArchetypeOf(e); ok {
		t.Errorf("expected entity gone after destroy synchronize")
	}
}

func TestStagingStructuralOpOnStaleEntityIsSilentlyIgnored(t *testing.T) {
	sto := newTestStorage()
	p := newStagingPipeline(sto)
	pos := FactoryNewComponent[Position]()

	ghost := NewEntityID(12345, 0)
	if err := p.AddComponent(0, ghost, pos); err != nil {
		t.Fatalf("staging an add on an unmaterialized entity should not itself error: %v", err)
	}
	if _, err := p.Synchronize([]WorkerID{0}); err != nil {
		t.Fatalf("Synchronize should silently skip the stale target, got error: %v", err)
	}
}

func TestStagingNullEntityOperationsAreErrors(t *testing.T) {
	sto := newTestStorage()
	p := newStagingPipeline(sto)
	pos := FactoryNewComponent[Position]()

	if err := p.AddComponent(0, NullEntity, pos); err == nil {
		t.Errorf("expected NullEntityError when staging an add on the null entity")
	}
	if err := p.RemoveComponent(0, NullEntity, pos); err == nil {
		t.Errorf("expected NullEntityError when staging a remove on the null entity")
	}
	if err := p.DestroyEntity(0, NullEntity); err == nil {
		t.Errorf("expected NullEntityError when staging a destroy on the null entity")
	}
}

func TestStagingClearsChangeBitsOnSynchronize(t *testing.T) {
	sto := newTestStorage()
	p := newStagingPipeline(sto)
	pos := FactoryNewComponent[Position]()
	MarkTracked(pos)

	e := p.CreateEntity(0, pos)
	if _, err := p.Synchronize([]WorkerID{0}); err != nil {
		t.Fatal(err)
	}

	arch, _ := sto.ArchetypeOf(e)
	ch, row, ok := arch.rowOf(e)
	if !ok {
		t.Fatalf("expected to resolve entity's row")
	}
	ch.markChanged(pos, row)
	if !ch.changed(pos, row) {
		t.Fatalf("expected change bit set before synchronize")
	}

	if _, err := p.Synchronize([]WorkerID{0}); err != nil {
		t.Fatal(err)
	}
	if ch.changed(pos, row) {
		t.Errorf("expected change bits cleared by Synchronize")
	}
}

func TestStagingDrainsBuffersForWorkersNotInOrder(t *testing.T) {
	sto := newTestStorage()
	p := newStagingPipeline(sto)
	pos := FactoryNewComponent[Position]()

	e := p.CreateEntity(7, pos) // worker 7 is never named in workerOrder
	if _, err := p.Synchronize([]WorkerID{0, 1}); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	if _, ok := sto.ArchetypeOf(e); !ok {
		t.Errorf("expected entity from an unlisted worker's buffer to still be drained")
	}
}
