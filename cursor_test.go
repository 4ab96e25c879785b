package foundry

import "testing"

func TestCursorNextIteratesAllMatches(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	ids, _ := sto.NewEntities(0, 3, pos)

	q := Factory.NewQuery()
	node := q.And(pos)
	c := Factory.NewCursor(node, sto)

	seen := make(map[EntityID]bool)
	for c.Next() {
		seen[c.Entity()] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 entities visited, got %d", len(seen))
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("expected entity %v visited", id)
		}
	}
}

func TestCursorLocksStorageWhileInitialized(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	sto.NewEntities(0, 1, pos)

	q := Factory.NewQuery()
	c := Factory.NewCursor(q.And(pos), sto)

	if sto.Locked() {
		t.Fatalf("storage should not be locked before Initialize")
	}
	c.Initialize()
	if !sto.Locked() {
		t.Errorf("expected storage locked while cursor is initialized")
	}
	for c.Next() {
	}
	if sto.Locked() {
		t.Errorf("expected lock released once iteration is exhausted")
	}
}

func TestCursorResetReleasesLockAndAllowsReuse(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	sto.NewEntities(0, 2, pos)

	q := Factory.NewQuery()
	c := Factory.NewCursor(q.And(pos), sto)

	c.Initialize()
	c.Reset()
	if sto.Locked() {
		t.Fatalf("expected lock released after Reset")
	}

	count := 0
	for c.Next() {
		count++
	}
	if count != 2 {
		t.Errorf("expected cursor reusable after Reset, got %d matches", count)
	}
}

func TestCursorNextChangedSkipsUnchangedRows(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	MarkTracked(pos)

	ids, _ := sto.NewEntities(0, 2, pos)
	arch, _ := sto.ArchetypeOf(ids[0])
	ch, row, _ := arch.rowOf(ids[0])
	ch.markChanged(pos, row)

	q := Factory.NewQuery()
	c := Factory.NewCursor(q.And(pos), sto)

	changed := 0
	for c.NextChanged(pos) {
		changed++
		if c.Entity() != ids[0] {
			t.Errorf("expected only the marked entity to report as changed, got %v", c.Entity())
		}
	}
	if changed != 1 {
		t.Errorf("expected exactly 1 changed row, got %d", changed)
	}
}

func TestCursorTotalMatchedConsumesAndResets(t *testing.T) {
	sto := newTestStorage()
	pos := FactoryNewComponent[Position]()
	sto.NewEntities(0, 4, pos)

	q := Factory.NewQuery()
	c := Factory.NewCursor(q.And(pos), sto)

	if got := c.TotalMatched(); got != 4 {
		t.Fatalf("TotalMatched() = %d, want 4", got)
	}
	if sto.Locked() {
		t.Errorf("expected TotalMatched to release its lock")
	}
}
