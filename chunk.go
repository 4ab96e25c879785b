package foundry

import "github.com/TheBitDrifter/table"

// chunk is one bounded-capacity shard of an archetype's storage (Component C,
// §3.3, §4.3.1). An archetype holds up to Config.ArchetypeChunkMax chunks;
// each wraps its own table.Table plus a private table.EntryIndex, so row
// resolution and swap-on-remove bookkeeping stay delegated to the table
// package exactly as the teacher delegates them for a whole archetype.
type chunk struct {
	tbl    table.Table
	index  table.EntryIndex
	schema table.Schema

	capacity   int
	doublings  int

	entityToLocal map[EntityID]table.EntryID
	localToEntity map[table.EntryID]EntityID

	// changeSets holds one growable bitset per tracked component, keyed by
	// the component's schema row index (§3.3, §4.3.6). Bit i is set when
	// row i's value for that component was written since the last
	// end-of-frame clear.
	changeSets map[uint32]*rowBitset
}

// maxDoublingsPerChunk bounds how many times a single chunk's row capacity
// may double before a fresh chunk is opened instead (§4.3.1). Past this
// point growth continues by adding a shard rather than by further
// doubling.
const maxDoublingsPerChunk = 4

func newChunk(schema table.Schema, components []Component, capacity int) (*chunk, error) {
	idx := table.Factory.NewEntryIndex()
	elementTypes := make([]table.ElementType, len(components))
	for i, c := range components {
		elementTypes[i] = c
	}
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(idx).
		WithElementTypes(elementTypes...).
		WithEvents(Config.tableEvents).
		Build()
	if err != nil {
		return nil, err
	}

	c := &chunk{
		tbl:           tbl,
		index:         idx,
		schema:        schema,
		capacity:      capacity,
		entityToLocal: make(map[EntityID]table.EntryID),
		localToEntity: make(map[table.EntryID]EntityID),
		changeSets:    make(map[uint32]*rowBitset),
	}
	for _, comp := range components {
		if IsTracked(comp) {
			row := schema.RowIndexFor(comp)
			bs := newRowBitset(capacity)
			c.changeSets[row] = &bs
		}
	}
	return c, nil
}

// full reports whether the chunk has reached its row capacity (§4.3.1).
func (c *chunk) full() bool {
	return c.tbl.Length() >= c.capacity
}

// expand doubles the chunk's row capacity, resizing every change bitset in
// the same pass (§4.3.1: change bitsets are resized and copied alongside
// row storage).
func (c *chunk) expand() {
	c.capacity *= 2
	c.doublings++
	for _, bs := range c.changeSets {
		bs.Resize(c.capacity)
	}
}

// add creates one new row for entity e and records the chunk-local mapping
// between e and the table entry backing that row.
func (c *chunk) add(e EntityID) (table.Entry, error) {
	entries, err := c.tbl.NewEntries(1)
	if err != nil {
		return nil, err
	}
	entry := entries[0]
	c.entityToLocal[e] = entry.ID()
	c.localToEntity[entry.ID()] = e
	return entry, nil
}

// remove deletes e's row. table.Table resolves swap-on-remove internally,
// so any entity swapped into e's former row keeps resolving correctly
// through its own (unaffected) table.EntryID.
func (c *chunk) remove(e EntityID) error {
	id, ok := c.entityToLocal[e]
	if !ok {
		return nil
	}
	if _, err := c.tbl.DeleteEntries(int(id)); err != nil {
		return err
	}
	delete(c.entityToLocal, e)
	delete(c.localToEntity, id)
	return nil
}

// entry resolves e's current table.Entry, re-fetched fresh so its Index()
// reflects any swap-on-remove that happened since e was added.
func (c *chunk) entry(e EntityID) (table.Entry, bool) {
	id, ok := c.entityToLocal[e]
	if !ok {
		return nil, false
	}
	en, err := c.index.Entry(int(id))
	if err != nil {
		return nil, false
	}
	return en, true
}

// entityAtRow returns the EntityID currently occupying row, if any.
func (c *chunk) entityAtRow(row int) (EntityID, bool) {
	en, err := c.tbl.Entry(row)
	if err != nil {
		return NullEntity, false
	}
	e, ok := c.localToEntity[en.ID()]
	return e, ok
}

// rowOf returns e's current row index within the chunk's table.
func (c *chunk) rowOf(e EntityID) (int, bool) {
	en, ok := c.entry(e)
	if !ok {
		return 0, false
	}
	return en.Index(), true
}

// markChanged flags comp's value at row as dirty. Untracked components are
// silently ignored, so callers never need to branch on trackedness.
func (c *chunk) markChanged(comp Component, row int) {
	bs, ok := c.changeSets[c.schema.RowIndexFor(comp)]
	if !ok {
		return
	}
	bs.Set(row)
}

// changed reports whether comp's value at row was written since the last
// clearAllChanges (§4.3.7's for_each_changed support).
func (c *chunk) changed(comp Component, row int) bool {
	bs, ok := c.changeSets[c.schema.RowIndexFor(comp)]
	if !ok {
		return false
	}
	return bs.Get(row)
}

// clearAllChanges resets every change bit, called once per synchronization
// pass (§4.8 step 8).
func (c *chunk) clearAllChanges() {
	for _, bs := range c.changeSets {
		bs.ClearAll()
	}
}

// anyChanges reports whether any tracked component changed anywhere in the
// chunk, letting a query skip a chunk outright when scanning for changes.
func (c *chunk) anyChanges() bool {
	for _, bs := range c.changeSets {
		if bs.AnySet() {
			return true
		}
	}
	return false
}
