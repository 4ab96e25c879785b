package foundry

// EntityDestroyCallback is invoked when an entity is destroyed, mirroring
// the teacher's parent/child destroy-callback hook (entity.go's
// SetDestroyCallback), generalized here to the EntityID value model rather
// than a table.Entry-backed handle.
type EntityDestroyCallback func(EntityID)

// entityRelations holds the supplemented parent/child hierarchy and
// destroy-callback state for one entity (carried over from
// original_source's entity hierarchy; not part of the distilled spec's
// core archetype model).
type entityRelations struct {
	parent    EntityID
	hasParent bool
	onDestroy EntityDestroyCallback
}

// SetParent records a parent/child relationship between two live entities.
// It is an error to call this twice for the same child without an
// intervening destroy.
func (s *Storage) SetParent(child, parent EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.location[child]; !ok {
		return StaleEntityError{Entity: child}
	}
	if _, ok := s.location[parent]; !ok {
		return StaleEntityError{Entity: parent}
	}
	rel := s.relationOf(child)
	if rel.hasParent {
		return EntityRelationError{child: child, parent: rel.parent}
	}
	rel.parent = parent
	rel.hasParent = true
	return nil
}

// Parent returns child's parent, if any and if the parent is still live.
func (s *Storage) Parent(child EntityID) (EntityID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.relations[child]
	if !ok || !rel.hasParent {
		return NullEntity, false
	}
	if _, live := s.location[rel.parent]; !live {
		return NullEntity, false
	}
	return rel.parent, true
}

// SetDestroyCallback registers a callback invoked when e is destroyed.
func (s *Storage) SetDestroyCallback(e EntityID, cb EntityDestroyCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.location[e]; !ok {
		return StaleEntityError{Entity: e}
	}
	s.relationOf(e).onDestroy = cb
	return nil
}

// relationOf returns (creating if necessary) e's relationship record. Must
// be called with s.mu held.
func (s *Storage) relationOf(e EntityID) *entityRelations {
	if s.relations == nil {
		s.relations = make(map[EntityID]*entityRelations)
	}
	rel, ok := s.relations[e]
	if !ok {
		rel = &entityRelations{}
		s.relations[e] = rel
	}
	return rel
}
