package foundry

import (
	"log"
	"reflect"
	"sync"
)

// primaryKindCategory is the TypeRegistry category used for ordinary
// archetype-resident component types (as opposed to secondary, boolean, or
// name kinds — §3.1, §3.5, §3.6).
const primaryKindCategory = "component"

// componentKind and componentTypeName derive a component's registry
// identity from its runtime type, mirroring the teacher's own use of
// reflect.TypeOf for component naming (entity.go's ComponentsAsString).
func componentKind(c Component) ComponentKind {
	return globalRegistry.KindOf(primaryKindCategory)
}

func componentTypeName(c Component) string {
	return reflect.TypeOf(c).String()
}

// componentTypeUUID is a convenience wrapper combining componentKind and
// componentTypeName with a registry lookup.
func componentTypeUUID(r *TypeRegistry, c Component) TypeUUID {
	return r.IndexOf(componentKind(c), componentTypeName(c))
}

// globalRegistry is the process-wide type registry backing componentKind.
// A world may still hold its own *TypeRegistry for archetype hashing
// (passed explicitly, per §4.1), but the component->kind mapping itself is
// necessarily process-wide: a component's Go type never changes kind
// between worlds.
var globalRegistry = NewTypeRegistry()

// TypeRegistry assigns stable numeric IDs to component categories (kinds)
// and to component types within a kind (§4.1). Construct it with
// NewTypeRegistry; the zero value's maps are nil and it is not usable.
// globalRegistry is the process-wide instance.
//
// Mutations are serialised by an internal lock; lookups after a type's
// first registration are served from a memoised map without taking the
// lock, matching §5's "type registry uses a single mutex on mutation
// paths; lookups after first registration are lock-free via memoisation"
// guarantee as closely as a safe Go implementation allows (we still take
// a read lock, but never block on registration of unrelated kinds).
type TypeRegistry struct {
	mu sync.RWMutex

	kindNames map[string]ComponentKind
	kindNext  ComponentKind

	// perKind[kind] maps a type name to its dense slot within that kind.
	perKind map[ComponentKind]map[string]uint16
	// nextSlot[kind] is the next dense slot to assign within that kind.
	nextSlot map[ComponentKind]uint16
	// globalIndex assigns the process-global ComponentIndex on first
	// registration of a (kind, name) pair, independent of kind-local slot.
	globalIndex     map[ComponentKind]map[string]ComponentIndex
	globalIndexNext ComponentIndex
}

// NewTypeRegistry constructs an empty registry. Kind 0 is reserved and is
// never assigned: KindOf hands out kinds starting at 1.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		kindNames:   make(map[string]ComponentKind),
		kindNext:    1,
		perKind:     make(map[ComponentKind]map[string]uint16),
		nextSlot:    make(map[ComponentKind]uint16),
		globalIndex: make(map[ComponentKind]map[string]ComponentIndex),
	}
}

// KindOf is idempotent: it assigns kind 1, 2, … on first call for a given
// category name; kind 0 is reserved.
func (r *TypeRegistry) KindOf(category string) ComponentKind {
	r.mu.RLock()
	if k, ok := r.kindNames[category]; ok {
		r.mu.RUnlock()
		return k
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.kindNames[category]; ok {
		return k
	}
	k := r.kindNext
	r.kindNext++
	r.kindNames[category] = k
	r.perKind[k] = map[string]uint16{}
	r.nextSlot[k] = 1
	r.globalIndex[k] = map[string]ComponentIndex{}
	log.Printf("foundry: registered component kind %q -> %d", category, k)
	return k
}

// IndexOf returns the dense, kind-local TypeUUID slot for typeName under
// kind, assigning it on first registration. Slot 0 of any kind is the
// null type of that kind.
func (r *TypeRegistry) IndexOf(kind ComponentKind, typeName string) TypeUUID {
	r.mu.RLock()
	if slot, ok := r.perKind[kind][typeName]; ok {
		r.mu.RUnlock()
		return TypeUUID{Kind: kind, Slot: slot}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.perKind[kind] == nil {
		r.perKind[kind] = map[string]uint16{}
		r.nextSlot[kind] = 1
		r.globalIndex[kind] = map[string]ComponentIndex{}
	}
	if slot, ok := r.perKind[kind][typeName]; ok {
		return TypeUUID{Kind: kind, Slot: slot}
	}
	slot := r.nextSlot[kind]
	r.nextSlot[kind] = slot + 1
	r.perKind[kind][typeName] = slot

	r.globalIndexNext++
	r.globalIndex[kind][typeName] = r.globalIndexNext

	log.Printf("foundry: registered component type %q under kind %d -> slot %d (global index %d)",
		typeName, kind, slot, r.globalIndexNext)
	return TypeUUID{Kind: kind, Slot: slot}
}

// ComponentIndexOf returns the process-global ComponentIndex for a type,
// registering it if unseen. Index 0 of any kind is the null type.
func (r *TypeRegistry) ComponentIndexOf(kind ComponentKind, typeName string) ComponentIndex {
	// Ensure the kind-local slot (and thus the global index) exists.
	r.IndexOf(kind, typeName)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.globalIndex[kind][typeName]
}

// ZeroType asserts that typeName is treated as the null type (slot 0) of
// kind — for categories that have a semantic "absent" type, such as names
// (§4.1). It is an error to call this after typeName has already been
// assigned a non-zero slot, or after slot 0 of kind has already been
// claimed by a different type name.
func (r *TypeRegistry) ZeroType(kind ComponentKind, typeName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.perKind[kind] == nil {
		r.perKind[kind] = map[string]uint16{}
		r.nextSlot[kind] = 1
		r.globalIndex[kind] = map[string]ComponentIndex{}
	}
	if existing, ok := r.perKind[kind][typeName]; ok {
		if existing != 0 {
			return ZeroTypeConflictError{Kind: kind, TypeName: typeName, Slot: existing}
		}
		return nil
	}
	for name, slot := range r.perKind[kind] {
		if slot == 0 {
			return ZeroTypeConflictError{Kind: kind, TypeName: name, Slot: 0}
		}
	}
	r.perKind[kind][typeName] = 0
	r.globalIndex[kind][typeName] = 0
	log.Printf("foundry: bound %q as the null type of kind %d", typeName, kind)
	return nil
}

// Count returns the number of distinct type names registered under kind,
// including the null type if bound.
func (r *TypeRegistry) Count(kind ComponentKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.perKind[kind])
}
