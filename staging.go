package foundry

import (
	"sort"
	"sync"
)

// stagingPipeline is Component G: every structural mutation (create, add,
// remove, destroy) is recorded into a per-worker buffer rather than
// applied immediately, so that any number of workers can call these
// methods concurrently while other workers iterate queries over a stable
// archetype layout. Synchronize is the single-threaded commit point that
// applies everything in a fixed order (§4.8).
type stagingPipeline struct {
	sto *Storage

	mu      sync.Mutex
	creates map[WorkerID][]createRecord
	structs map[WorkerID][]structuralRecord
	deletes map[WorkerID][]EntityID
}

type createRecord struct {
	id         EntityID
	components []Component
}

type structuralKind int

const (
	structAdd structuralKind = iota
	structRemove
)

type structuralRecord struct {
	kind      structuralKind
	entity    EntityID
	component Component
}

func newStagingPipeline(sto *Storage) *stagingPipeline {
	return &stagingPipeline{
		sto:     sto,
		creates: make(map[WorkerID][]createRecord),
		structs: make(map[WorkerID][]structuralRecord),
		deletes: make(map[WorkerID][]EntityID),
	}
}

// CreateEntity mints a new EntityID immediately (so callers can reference
// it the same frame, e.g. to stage AddComponent on it) but defers the
// archetype row creation to the next Synchronize (§4.2, §4.8 step 1).
// Storage operations that need a materialized entity, such as SetParent,
// return StaleEntityError for it until then.
func (p *stagingPipeline) CreateEntity(worker WorkerID, components ...Component) EntityID {
	id := p.sto.alloc.Create(worker)
	p.mu.Lock()
	p.creates[worker] = append(p.creates[worker], createRecord{id: id, components: components})
	p.mu.Unlock()
	return id
}

// AddComponent stages a component addition for e.
func (p *stagingPipeline) AddComponent(worker WorkerID, e EntityID, c Component) error {
	if e.IsNull() {
		return NullEntityError{}
	}
	p.mu.Lock()
	p.structs[worker] = append(p.structs[worker], structuralRecord{kind: structAdd, entity: e, component: c})
	p.mu.Unlock()
	return nil
}

// RemoveComponent stages a component removal for e.
func (p *stagingPipeline) RemoveComponent(worker WorkerID, e EntityID, c Component) error {
	if e.IsNull() {
		return NullEntityError{}
	}
	p.mu.Lock()
	p.structs[worker] = append(p.structs[worker], structuralRecord{kind: structRemove, entity: e, component: c})
	p.mu.Unlock()
	return nil
}

// DestroyEntity stages e's destruction.
func (p *stagingPipeline) DestroyEntity(worker WorkerID, e EntityID) error {
	if e.IsNull() {
		return NullEntityError{}
	}
	p.mu.Lock()
	p.deletes[worker] = append(p.deletes[worker], e)
	p.mu.Unlock()
	p.sto.alloc.Delete(worker, e)
	return nil
}

// Synchronize applies every staged mutation in the fixed commit order
// (§4.8): creates, then structural moves (add/remove, batched by source
// archetype for locality), then deletes, then the allocator's own
// generation bump/recycle, then the per-chunk change-bitset clear. It
// returns the EntityIDs recycled this pass.
func (p *stagingPipeline) Synchronize(workerOrder []WorkerID) ([]EntityID, error) {
	p.mu.Lock()
	creates := p.drainCreates(workerOrder)
	structs := p.drainStructs(workerOrder)
	deletes := p.drainDeletes(workerOrder)
	p.mu.Unlock()

	for _, c := range creates {
		if err := p.sto.createEntityImmediate(c.id, c.components...); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(structs, func(i, j int) bool {
		ai, aj := p.sto.archetypeHashOf(structs[i].entity), p.sto.archetypeHashOf(structs[j].entity)
		return ai < aj
	})
	for _, r := range structs {
		var err error
		switch r.kind {
		case structAdd:
			err = p.sto.addComponentImmediate(r.entity, r.component)
		case structRemove:
			err = p.sto.removeComponentImmediate(r.entity, r.component)
		}
		if _, stale := err.(StaleEntityError); stale {
			continue // §7: stale targets are silently ignored, not propagated
		}
		if err != nil {
			return nil, err
		}
	}

	for _, e := range deletes {
		if err := p.sto.destroyEntityImmediate(e); err != nil {
			return nil, err
		}
	}

	recycled := p.sto.alloc.Synchronize(workerOrder)

	for _, a := range p.sto.graph.all() {
		for _, c := range a.chunks {
			c.clearAllChanges()
		}
	}

	return recycled, nil
}

func (p *stagingPipeline) drainCreates(workerOrder []WorkerID) []createRecord {
	var out []createRecord
	seen := make(map[WorkerID]bool, len(workerOrder))
	for _, w := range workerOrder {
		out = append(out, p.creates[w]...)
		delete(p.creates, w)
		seen[w] = true
	}
	for w, recs := range p.creates {
		if !seen[w] {
			out = append(out, recs...)
		}
	}
	p.creates = make(map[WorkerID][]createRecord)
	return out
}

func (p *stagingPipeline) drainStructs(workerOrder []WorkerID) []structuralRecord {
	var out []structuralRecord
	seen := make(map[WorkerID]bool, len(workerOrder))
	for _, w := range workerOrder {
		out = append(out, p.structs[w]...)
		delete(p.structs, w)
		seen[w] = true
	}
	for w, recs := range p.structs {
		if !seen[w] {
			out = append(out, recs...)
		}
	}
	p.structs = make(map[WorkerID][]structuralRecord)
	return out
}

func (p *stagingPipeline) drainDeletes(workerOrder []WorkerID) []EntityID {
	var out []EntityID
	seen := make(map[WorkerID]bool, len(workerOrder))
	for _, w := range workerOrder {
		out = append(out, p.deletes[w]...)
		delete(p.deletes, w)
		seen[w] = true
	}
	for w, recs := range p.deletes {
		if !seen[w] {
			out = append(out, recs...)
		}
	}
	p.deletes = make(map[WorkerID][]EntityID)
	return out
}
