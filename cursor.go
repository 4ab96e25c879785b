package foundry

import "sync/atomic"

// Cursor iterates the entities matching a Query, walking one archetype's
// chunks at a time (§4.3.7). While a cursor is initialized it holds a
// storage lock bit, so Storage.Locked reports true. No storage operation
// consults the lock; structural mutation is deferred by the staging
// pipeline to the next synchronization point.
type Cursor struct {
	query QueryNode
	sto   *Storage

	lockBit uint32

	matched  []*archetype
	archIdx  int
	chunkIdx int
	rowIdx   int

	curArch  *archetype
	curChunk *chunk

	initialized bool
}

func newCursor(query QueryNode, sto *Storage) *Cursor {
	return &Cursor{query: query, sto: sto, rowIdx: -1}
}

// nextLockBit hands out a lock bit for a newly-initialized cursor. Bits
// are drawn from a monotonically increasing counter mod 256 (mask.Mask256's
// width). Two concurrently active cursors can draw the same bit; the first
// of them to release it clears it for both, so Storage.Locked can then
// report false while the other cursor is still iterating.
func (s *Storage) nextLockBit() uint32 {
	return uint32(atomic.AddUint32(&s.cursorSeq, 1) % 256)
}

// Initialize resolves which archetypes currently match the query and
// takes the cursor's storage lock. Safe to call more than once; only the
// first call has an effect until Reset.
func (c *Cursor) Initialize() {
	if c.initialized {
		return
	}
	c.lockBit = c.sto.nextLockBit()
	c.sto.AddLock(c.lockBit)

	c.matched = c.matched[:0]
	for _, a := range c.sto.Archetypes() {
		if c.query.Evaluate(a, c.sto) {
			c.matched = append(c.matched, a)
		}
	}
	c.archIdx = 0
	c.chunkIdx = 0
	c.rowIdx = -1
	c.initialized = true
}

// Reset releases the cursor's lock bit and clears its iteration state so
// it can be reused for another pass.
func (c *Cursor) Reset() {
	if c.initialized {
		c.sto.RemoveLock(c.lockBit)
	}
	c.matched = nil
	c.archIdx = 0
	c.chunkIdx = 0
	c.rowIdx = -1
	c.curArch = nil
	c.curChunk = nil
	c.initialized = false
}

// Next advances to the next matching row, returning false (and releasing
// the lock) once iteration is exhausted.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.Initialize()
	}
	for c.archIdx < len(c.matched) {
		arch := c.matched[c.archIdx]
		if c.chunkIdx >= len(arch.chunks) {
			c.archIdx++
			c.chunkIdx = 0
			c.rowIdx = -1
			continue
		}
		ch := arch.chunks[c.chunkIdx]
		c.rowIdx++
		if c.rowIdx < ch.tbl.Length() {
			c.curArch = arch
			c.curChunk = ch
			return true
		}
		c.chunkIdx++
		c.rowIdx = -1
	}
	c.Reset()
	return false
}

// NextChanged advances like Next, but additionally skips rows where none
// of the given tracked components changed since the last synchronization
// (§4.3.7's for_each_changed).
func (c *Cursor) NextChanged(components ...Component) bool {
	for c.Next() {
		for _, comp := range components {
			if c.curChunk.changed(comp, c.rowIdx) {
				return true
			}
		}
	}
	return false
}

// Entity returns the EntityID at the cursor's current position.
func (c *Cursor) Entity() EntityID {
	e, _ := c.curChunk.entityAtRow(c.rowIdx)
	return e
}

// Row returns the current row index within the current chunk.
func (c *Cursor) Row() int {
	return c.rowIdx
}

// TotalMatched returns the total number of entities matching the query,
// across every matching archetype and chunk. Consumes and resets the
// cursor, matching the teacher's TotalMatched semantics.
func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.Initialize()
	}
	total := 0
	for _, a := range c.matched {
		total += a.length()
	}
	c.Reset()
	return total
}
