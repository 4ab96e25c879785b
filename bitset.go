package foundry

import "math/bits"

// rowBitset is a growable, word-packed bitset indexed by row (or, for tag
// storage, by entity index). It backs the per-chunk change-tracking
// bitsets (§3.3, §4.3.6) and the boolean tag dense archetype membership
// set (§3.6).
//
// The pack's `mask` library ships fixed-width bitsets (Mask, Mask256) sized
// for component type-sets and lock bits; neither is sized for a
// chunk-capacity- or population-sized bitset that must grow past 256 bits,
// so this one concern is implemented directly on a []uint64 word slice —
// see DESIGN.md for the corresponding standard-library justification.
type rowBitset struct {
	words []uint64
}

func newRowBitset(capacity int) rowBitset {
	return rowBitset{words: make([]uint64, (capacity+63)/64)}
}

func (b *rowBitset) ensure(row int) {
	need := row/64 + 1
	if need > len(b.words) {
		grown := make([]uint64, need)
		copy(grown, b.words)
		b.words = grown
	}
}

// Set marks row as dirty/present.
func (b *rowBitset) Set(row int) {
	b.ensure(row)
	b.words[row/64] |= 1 << uint(row%64)
}

// Clear unmarks row.
func (b *rowBitset) Clear(row int) {
	if row/64 >= len(b.words) {
		return
	}
	b.words[row/64] &^= 1 << uint(row%64)
}

// Get reports whether row is marked.
func (b *rowBitset) Get(row int) bool {
	if row/64 >= len(b.words) {
		return false
	}
	return b.words[row/64]&(1<<uint(row%64)) != 0
}

// ClearAll resets every bit to 0 without shrinking the backing storage.
func (b *rowBitset) ClearAll() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// AnySet reports whether at least one bit is set.
func (b *rowBitset) AnySet() bool {
	for _, w := range b.words {
		if w != 0 {
			return true
		}
	}
	return false
}

// Count returns the number of set bits.
func (b *rowBitset) Count() int {
	total := 0
	for _, w := range b.words {
		total += bits.OnesCount64(w)
	}
	return total
}

// ForEach invokes fn for each set row index in ascending order.
func (b *rowBitset) ForEach(fn func(row int)) {
	for wi, w := range b.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			fn(wi*64 + tz)
			w &= w - 1
		}
	}
}

// Resize grows (never shrinks) the backing storage to at least capacity
// bits, preserving existing bits — mirroring the archetype chunk resize
// described in §4.3.1 ("Change bitsets are resized and copied in the same
// pass").
func (b *rowBitset) Resize(capacity int) {
	need := (capacity + 63) / 64
	if need <= len(b.words) {
		return
	}
	grown := make([]uint64, need)
	copy(grown, b.words)
	b.words = grown
}
