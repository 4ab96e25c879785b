package foundry

import (
	"sort"
	"sync"

	"github.com/TheBitDrifter/table"
)

// archetypeGraph is the append-only registry of archetypes plus cached
// add/remove transition edges between them (Component D, §3.4). Archetypes
// are identified by the hash of their sorted type set and never removed,
// so a resolved transition edge stays valid for the storage's lifetime.
type archetypeGraph struct {
	mu sync.RWMutex

	schema table.Schema

	byHash map[uint64]*archetype
	asList []*archetype
	nextID archetypeID
}

func newArchetypeGraph(schema table.Schema) *archetypeGraph {
	return &archetypeGraph{
		schema: schema,
		byHash: make(map[uint64]*archetype),
		nextID: 1,
	}
}

// sortedTypes builds the canonical, sorted type-descriptor list and its
// hash for a component set.
func sortedTypes(registry *TypeRegistry, components []Component) ([]typeDescriptor, uint64) {
	descs := make([]typeDescriptor, len(components))
	for i, c := range components {
		descs[i] = typeDescriptor{
			uuid:      componentTypeUUID(registry, c),
			component: c,
		}
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].uuid.Less(descs[j].uuid) })

	uuids := make([]TypeUUID, len(descs))
	for i, d := range descs {
		uuids[i] = d.uuid
	}
	return descs, TypeSetHash(uuids)
}

// findByHash returns the archetype already registered for hash, if any.
func (g *archetypeGraph) findByHash(hash uint64) (*archetype, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.byHash[hash]
	return a, ok
}

// resolve returns the archetype matching components exactly, creating and
// registering a new one if none exists yet (§3.4's "resolve_new").
func (g *archetypeGraph) resolve(registry *TypeRegistry, components []Component) *archetype {
	descs, hash := sortedTypes(registry, components)

	g.mu.RLock()
	a, ok := g.byHash[hash]
	g.mu.RUnlock()
	if ok {
		return a
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if a, ok := g.byHash[hash]; ok {
		return a
	}

	comps := make([]Component, len(descs))
	for i, d := range descs {
		comps[i] = d.component
	}
	g.schema.Register(toElementTypes(comps)...)

	a = newArchetypeStorage(g.nextID, g.schema, descs, hash)
	g.nextID++
	g.byHash[hash] = a
	g.asList = append(g.asList, a)
	return a
}

// resolveAdd returns the archetype reached by adding c to src, using and
// populating src's cached add-edge (§3.4).
func (g *archetypeGraph) resolveAdd(registry *TypeRegistry, src *archetype, c Component) *archetype {
	t := componentTypeUUID(registry, c)
	if id, ok := src.addEdge[t]; ok {
		if dst := g.findByID(id); dst != nil {
			return dst
		}
	}
	comps := append(append([]Component{}, src.components()...), c)
	dst := g.resolve(registry, comps)
	src.addEdge[t] = dst.id
	return dst
}

// resolveRemove returns the archetype reached by removing c from src,
// using and populating src's cached remove-edge (§3.4).
func (g *archetypeGraph) resolveRemove(registry *TypeRegistry, src *archetype, c Component) *archetype {
	t := componentTypeUUID(registry, c)
	if id, ok := src.removeEdge[t]; ok {
		if dst := g.findByID(id); dst != nil {
			return dst
		}
	}
	comps := make([]Component, 0, len(src.types))
	for _, d := range src.types {
		if d.uuid != t {
			comps = append(comps, d.component)
		}
	}
	dst := g.resolve(registry, comps)
	src.removeEdge[t] = dst.id
	return dst
}

func (g *archetypeGraph) findByID(id archetypeID) *archetype {
	for _, a := range g.asList {
		if a.id == id {
			return a
		}
	}
	return nil
}

// all returns every registered archetype, in creation order.
func (g *archetypeGraph) all() []*archetype {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*archetype, len(g.asList))
	copy(out, g.asList)
	return out
}

func toElementTypes(comps []Component) []table.ElementType {
	ets := make([]table.ElementType, len(comps))
	for i, c := range comps {
		ets[i] = c
	}
	return ets
}
