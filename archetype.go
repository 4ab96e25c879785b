package foundry

import (
	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

type archetypeID uint32

// typeDescriptor is one entry in an archetype's sorted component-type list
// (§3.3): the totally-ordered TypeUUID plus the live Component value used
// to build the backing table schema.
type typeDescriptor struct {
	uuid      TypeUUID
	component Component
}

// archetype is the chunked storage for every entity sharing an identical
// component-type set (Component C, §3.3). Its identity is the FNV-style
// fold of its sorted type list (TypeSetHash), cached on the archetype
// graph (Component D) alongside add/remove transition edges.
type archetype struct {
	id     archetypeID
	types  []typeDescriptor
	hash   uint64
	schema table.Schema

	chunks   []*chunk
	location map[EntityID]int // entity -> index into chunks

	// componentMask is the schema-bit mask of this archetype's component
	// set, computed once at creation so query evaluation never needs a
	// live chunk/table to test membership (§4.3.7).
	componentMask mask.Mask

	// addEdge and removeEdge cache resolved archetype transitions keyed by
	// the TypeUUID added or removed, mirroring the teacher's archetype
	// lookup cache but scoped per-archetype rather than per-storage
	// (§4.3.1's "expand" logic plus the graph's transition cache, §3.4).
	addEdge    map[TypeUUID]archetypeID
	removeEdge map[TypeUUID]archetypeID
}

func newArchetypeStorage(id archetypeID, schema table.Schema, types []typeDescriptor, hash uint64) *archetype {
	var m mask.Mask
	for _, d := range types {
		m.Mark(schema.RowIndexFor(d.component))
	}
	return &archetype{
		id:            id,
		types:         types,
		hash:          hash,
		schema:        schema,
		location:      make(map[EntityID]int),
		componentMask: m,
		addEdge:       make(map[TypeUUID]archetypeID),
		removeEdge:    make(map[TypeUUID]archetypeID),
	}
}

func (a *archetype) ID() archetypeID { return a.id }

// components extracts the live Component values backing this archetype's
// table schema, in the same sorted order as a.types.
func (a *archetype) components() []Component {
	comps := make([]Component, len(a.types))
	for i, t := range a.types {
		comps[i] = t.component
	}
	return comps
}

// contains reports whether t is one of this archetype's component types.
func (a *archetype) contains(t TypeUUID) bool {
	for _, d := range a.types {
		if d.uuid == t {
			return true
		}
	}
	return false
}

// activeChunk returns the archetype's most recently opened chunk, or nil
// if none has been created yet.
func (a *archetype) activeChunk() *chunk {
	if len(a.chunks) == 0 {
		return nil
	}
	return a.chunks[len(a.chunks)-1]
}

// chunkForInsert returns the chunk a new row should land in, expanding the
// active chunk or opening a fresh one as needed, bounded by
// Config.ArchetypeChunkMax (§4.3.1).
func (a *archetype) chunkForInsert() (*chunk, int, error) {
	active := a.activeChunk()
	needsNewChunk := active == nil || (active.full() && active.doublings >= maxDoublingsPerChunk)

	if needsNewChunk {
		if len(a.chunks) >= Config.ArchetypeChunkMax {
			return nil, 0, TooManyChunksError{Archetype: a.hash}
		}
		nc, err := newChunk(a.schema, a.components(), Config.ArchetypeStartingCap)
		if err != nil {
			return nil, 0, err
		}
		a.chunks = append(a.chunks, nc)
		return nc, len(a.chunks) - 1, nil
	}

	if active.full() {
		active.expand()
	}
	return active, len(a.chunks) - 1, nil
}

// addEntity creates a new row for e in whichever chunk has room.
func (a *archetype) addEntity(e EntityID) (table.Entry, error) {
	c, ci, err := a.chunkForInsert()
	if err != nil {
		return nil, err
	}
	entry, err := c.add(e)
	if err != nil {
		return nil, err
	}
	a.location[e] = ci
	return entry, nil
}

// removeEntity deletes e's row from whichever chunk holds it.
func (a *archetype) removeEntity(e EntityID) error {
	ci, ok := a.location[e]
	if !ok {
		return nil
	}
	if err := a.chunks[ci].remove(e); err != nil {
		return err
	}
	delete(a.location, e)
	return nil
}

// moveEntityTo transfers e's row from this archetype into dst, preserving
// the values of every component the two archetypes share, via
// table.Table.TransferEntries exactly as the teacher's AddComponent /
// RemoveComponent do for a whole-table move (§4.3.2-§4.3.5).
func (a *archetype) moveEntityTo(e EntityID, dst *archetype) (table.Entry, error) {
	ci, ok := a.location[e]
	if !ok {
		return nil, StaleEntityError{Entity: e}
	}
	src := a.chunks[ci]
	row, ok := src.rowOf(e)
	if !ok {
		return nil, StaleEntityError{Entity: e}
	}

	dc, dci, err := dst.chunkForInsert()
	if err != nil {
		return nil, err
	}
	if err := src.tbl.TransferEntries(dc.tbl, row); err != nil {
		return nil, err
	}

	localID := src.entityToLocal[e]
	delete(src.entityToLocal, e)
	delete(src.localToEntity, localID)
	delete(a.location, e)

	entry, err := dc.index.Entry(dc.tbl.Length() - 1)
	if err != nil {
		return nil, err
	}
	dc.entityToLocal[e] = entry.ID()
	dc.localToEntity[entry.ID()] = e
	dst.location[e] = dci

	return entry, nil
}

// rowOf returns e's chunk and row index within this archetype.
func (a *archetype) rowOf(e EntityID) (*chunk, int, bool) {
	ci, ok := a.location[e]
	if !ok {
		return nil, 0, false
	}
	c := a.chunks[ci]
	row, ok := c.rowOf(e)
	return c, row, ok
}

// length returns the total live row count across every chunk.
func (a *archetype) length() int {
	total := 0
	for _, c := range a.chunks {
		total += c.tbl.Length()
	}
	return total
}
