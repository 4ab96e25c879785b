package foundry

import (
	"sync"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

// Storage is the primary archetype storage coordinator (Component C): it
// owns the type registry, entity allocator, and archetype graph, and
// tracks which archetype currently holds each live entity. Structural
// mutations (create/add/remove/destroy) are applied here only from the
// single-threaded synchronization point (staging.go); concurrent readers
// go through Query/Cursor, which take a cursor lock bit via AddLock.
type Storage struct {
	mu sync.RWMutex

	schema   table.Schema
	registry *TypeRegistry
	alloc    *EntityAllocator
	graph    *archetypeGraph

	locks     mask.Mask256
	cursorSeq uint32

	location  map[EntityID]*archetype
	relations map[EntityID]*entityRelations

	secondary *secondaryStorage
	tags      *tagStorage
}

func newStorage(schema table.Schema) *Storage {
	registry := NewTypeRegistry()
	return &Storage{
		schema:    schema,
		registry:  registry,
		alloc:     NewEntityAllocator(),
		graph:     newArchetypeGraph(schema),
		location:  make(map[EntityID]*archetype),
		secondary: newSecondaryStorage(),
		tags:      newTagStorage(),
	}
}

// Locked reports whether any cursor lock bit is currently held (§4.3.7:
// structural mutation is deferred to staging while a query iterates).
func (s *Storage) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.locks.IsEmpty()
}

// AddLock marks cursor lock bit, which Locked then reports. No storage
// operation checks the lock before mutating.
func (s *Storage) AddLock(bit uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks.Mark(bit)
}

// RemoveLock releases cursor lock bit.
func (s *Storage) RemoveLock(bit uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks.Unmark(bit)
}

// Registry returns the storage's type registry.
func (s *Storage) Registry() *TypeRegistry { return s.registry }

// Allocator returns the storage's entity allocator.
func (s *Storage) Allocator() *EntityAllocator { return s.alloc }

// Archetypes returns every registered archetype, in creation order.
func (s *Storage) Archetypes() []*archetype {
	return s.graph.all()
}

// createEntityImmediate allocates an archetype row for an already-minted
// EntityID and records its location. Called only from the synchronization
// commit point (§4.8 step 1).
func (s *Storage) createEntityImmediate(e EntityID, components ...Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	arche := s.graph.resolve(s.registry, components)
	if _, err := arche.addEntity(e); err != nil {
		return err
	}
	s.location[e] = arche
	return nil
}

// addComponentImmediate moves e from its current archetype to the one
// reached by adding c, preserving shared component values (§4.8 step 2).
func (s *Storage) addComponentImmediate(e EntityID, c Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.location[e]
	if !ok {
		return StaleEntityError{Entity: e}
	}
	t := componentTypeUUID(s.registry, c)
	if src.contains(t) {
		return nil
	}
	dst := s.graph.resolveAdd(s.registry, src, c)
	if _, err := src.moveEntityTo(e, dst); err != nil {
		return err
	}
	s.location[e] = dst
	return nil
}

// removeComponentImmediate moves e to the archetype reached by removing c.
func (s *Storage) removeComponentImmediate(e EntityID, c Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.location[e]
	if !ok {
		return StaleEntityError{Entity: e}
	}
	t := componentTypeUUID(s.registry, c)
	if !src.contains(t) {
		return nil
	}
	dst := s.graph.resolveRemove(s.registry, src, c)
	if _, err := src.moveEntityTo(e, dst); err != nil {
		return err
	}
	s.location[e] = dst
	return nil
}

// destroyEntityImmediate removes e's row from its archetype and drops its
// location entry. Generation recycling happens separately, via the
// allocator's own Synchronize (§4.8 step 6).
func (s *Storage) destroyEntityImmediate(e EntityID) error {
	s.mu.Lock()
	arche, ok := s.location[e]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	rel := s.relations[e]
	if err := arche.removeEntity(e); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.location, e)
	delete(s.relations, e)
	s.mu.Unlock()

	if rel != nil && rel.onDestroy != nil {
		rel.onDestroy(e)
	}
	return nil
}

// NewEntities immediately creates n entities with the given component set,
// bypassing the staging pipeline. Intended for initial world population
// (before any system is iterating), mirroring the teacher's
// Storage.NewEntities; steady-state creation should go through the
// staging pipeline's CreateEntity instead.
func (s *Storage) NewEntities(worker WorkerID, n int, components ...Component) ([]EntityID, error) {
	ids := make([]EntityID, n)
	for i := 0; i < n; i++ {
		id := s.alloc.Create(worker)
		if err := s.createEntityImmediate(id, components...); err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// ArchetypeOf returns the archetype currently holding e, if any.
func (s *Storage) ArchetypeOf(e EntityID) (*archetype, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.location[e]
	return a, ok
}

// Has reports whether live entity e currently carries component c.
func (s *Storage) Has(e EntityID, c Component) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.location[e]
	if !ok {
		return false
	}
	return a.contains(componentTypeUUID(s.registry, c))
}

// archetypeHashOf returns the type-set hash of e's current archetype, used
// by the staging pipeline to batch structural moves by source archetype
// for locality (§4.8 step 2). Entities with no current archetype (already
// destroyed, or not yet materialized) sort first.
func (s *Storage) archetypeHashOf(e EntityID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.location[e]
	if !ok {
		return 0
	}
	return a.hash
}

// RowIndexFor returns c's bit index in the storage's schema (used by query
// mask evaluation, mirroring the teacher's storage.RowIndexFor).
func (s *Storage) RowIndexFor(c Component) uint32 {
	return s.schema.RowIndexFor(c)
}

// markChanged flags c's value for e as dirty for the current frame
// (§3.3, §4.3.6). Callers obtain row/chunk position via the cursor they
// wrote through.
func (s *Storage) markChanged(e EntityID, c Component, row int, ch *chunk) {
	ch.markChanged(c, row)
}
