package foundry

import "sync"

// WorkerID identifies one of the scheduler's worker slots. The allocator
// and staging pipeline are indexed by an explicit WorkerID passed at call
// time rather than goroutine-local storage, per the design notes on
// thread-local staging: "explicit per-worker arrays indexed by worker id;
// each worker is passed a handle at system entry. Do not rely on
// language-level TLS."
type WorkerID int

// workerSlice is one worker's private index range plus LIFO recycle stack
// (§4.2).
type workerSlice struct {
	next uint32
	cap  uint32
	free []uint32
}

// EntityAllocator hands out generational entity IDs, recycles deleted IDs,
// and holds per-entity generation bytes (§4.2, Component B).
//
// Each worker holds a slice [next, cap) plus a LIFO recycle stack. Create
// pops the recycle stack first, else returns next++; if the slice is
// exhausted it atomically reserves a new slice of fixed width from the
// global counter. Delete appends to a thread-local deletion buffer drained
// at Synchronize.
type EntityAllocator struct {
	mu sync.Mutex

	globalNext uint32 // next never-allocated index; protected by mu
	sliceWidth uint32

	generations []uint8 // indexed by entity index; grown, never shrunk

	workers map[WorkerID]*workerSlice

	pendingDeletes map[WorkerID][]EntityID
	lastRecycled   []EntityID // result of the most recent Synchronize
}

// NewEntityAllocator constructs an allocator. Index 0 is reserved as the
// null entity and is never handed out.
func NewEntityAllocator() *EntityAllocator {
	a := &EntityAllocator{
		sliceWidth:     uint32(Config.ThreadLocalEntitySlice),
		generations:    make([]uint8, 1, Config.InitialEntityCapacity+1),
		workers:        make(map[WorkerID]*workerSlice),
		pendingDeletes: make(map[WorkerID][]EntityID),
	}
	a.globalNext = 1 // index 0 is NullEntity
	return a
}

// SetEntityLimit grows the generation table to cover at least limit
// entities (§4.2: "entity_limit is the current allocation for all
// per-kind metadata arrays").
func (a *EntityAllocator) SetEntityLimit(limit uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.growGenerationsLocked(limit)
}

func (a *EntityAllocator) growGenerationsLocked(minIndex uint32) {
	if uint32(len(a.generations)) > minIndex {
		return
	}
	grown := make([]uint8, minIndex+1)
	copy(grown, a.generations)
	a.generations = grown
}

func (a *EntityAllocator) worker(id WorkerID) *workerSlice {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.workers[id]
	if !ok {
		w = &workerSlice{}
		a.workers[id] = w
	}
	return w
}

// reserveSlice atomically reserves the next fixed-width range of never
// allocated indices for a worker whose local slice is exhausted.
func (a *EntityAllocator) reserveSlice() (next, cap uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next = a.globalNext
	cap = next + a.sliceWidth
	a.globalNext = cap
	a.growGenerationsLocked(cap)
	return next, cap
}

// Create hands out a new or recycled EntityID to the given worker.
func (a *EntityAllocator) Create(worker WorkerID) EntityID {
	w := a.worker(worker)

	if n := len(w.free); n > 0 {
		idx := w.free[n-1]
		w.free = w.free[:n-1]
		a.mu.Lock()
		gen := a.generations[idx]
		a.mu.Unlock()
		return NewEntityID(idx, gen)
	}

	if w.next >= w.cap {
		w.next, w.cap = a.reserveSlice()
	}
	idx := w.next
	w.next++

	a.mu.Lock()
	a.growGenerationsLocked(idx)
	gen := a.generations[idx]
	a.mu.Unlock()
	return NewEntityID(idx, gen)
}

// Delete appends e to worker's thread-local deletion buffer; it is not
// freed until the next Synchronize (§4.8 step 6).
func (a *EntityAllocator) Delete(worker WorkerID, e EntityID) {
	if e.IsNull() {
		return
	}
	a.mu.Lock()
	a.pendingDeletes[worker] = append(a.pendingDeletes[worker], e)
	a.mu.Unlock()
}

// LiveGeneration returns the slot's current generation byte for e's index.
func (a *EntityAllocator) LiveGeneration(e EntityID) uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := e.Index()
	if idx >= uint32(len(a.generations)) {
		return 0
	}
	return a.generations[idx]
}

// IsLive compares the slot's current generation to e.Gen() (§3.1).
func (a *EntityAllocator) IsLive(e EntityID) bool {
	if e.IsNull() {
		return false
	}
	return a.LiveGeneration(e) == e.Gen()
}

// Synchronize merges all workers' thread-local deletion buffers, bumps
// each deleted entity's generation (wrapping 255 -> 0), and distributes
// the recycled indices round-robin across worker recycle stacks (§4.2,
// §4.8 step 6). It returns the recycled EntityIDs (new generation) for
// callers that need to react to deletion (e.g. secondary/boolean storage
// drains, destroy callbacks).
func (a *EntityAllocator) Synchronize(workerOrder []WorkerID) []EntityID {
	a.mu.Lock()
	defer a.mu.Unlock()

	var merged []EntityID
	for _, w := range workerOrder {
		merged = append(merged, a.pendingDeletes[w]...)
		delete(a.pendingDeletes, w)
	}
	// Any buffers for workers not present in workerOrder are still merged,
	// in map iteration order, so no deletion is ever silently dropped.
	for w, buf := range a.pendingDeletes {
		merged = append(merged, buf...)
		delete(a.pendingDeletes, w)
	}

	if len(merged) == 0 {
		a.lastRecycled = nil
		return nil
	}

	recycled := make([]EntityID, 0, len(merged))
	for _, e := range merged {
		idx := e.Index()
		a.growGenerationsLocked(idx)
		g := a.generations[idx]
		g++ // wraps 255 -> 0 automatically via uint8 overflow
		a.generations[idx] = g
		recycled = append(recycled, NewEntityID(idx, g))
	}

	if len(a.workers) == 0 {
		a.workers[0] = &workerSlice{}
	}
	ids := make([]WorkerID, 0, len(a.workers))
	for id := range a.workers {
		ids = append(ids, id)
	}
	for i, e := range recycled {
		w := a.workers[ids[i%len(ids)]]
		w.free = append(w.free, e.Index())
	}

	a.lastRecycled = recycled
	return recycled
}

// DeletedEntities returns the EntityIDs recycled by the most recent
// Synchronize call.
func (a *EntityAllocator) DeletedEntities() []EntityID {
	return a.lastRecycled
}
