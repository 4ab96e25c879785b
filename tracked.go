package foundry

import (
	"fmt"
	"sync"
)

// trackedTypes records which primary component types are change-tracked
// (§3.3, §4.3.6). A type's change bit is only ever allocated per chunk if
// it is marked tracked here; non-tracked types never pay for a change
// bitset, per the invariant in §3.3.
//
// Keyed by a string rendering of Component.ID() rather than the raw ID
// value: Component is the teacher's table.ElementType interface and its
// concrete ID type is opaque to this package, so a %v rendering is the
// only comparison that doesn't assume a specific underlying type.
var trackedTypes = struct {
	mu  sync.RWMutex
	set map[string]bool
}{set: make(map[string]bool)}

func componentKey(c Component) string {
	return fmt.Sprintf("%v", c.ID())
}

// MarkTracked declares c a change-tracked component type. Call this once,
// at startup, before creating any entities carrying c — mirroring the
// teacher's FactoryNewComponent call-once-at-startup convention.
func MarkTracked(c Component) {
	trackedTypes.mu.Lock()
	defer trackedTypes.mu.Unlock()
	trackedTypes.set[componentKey(c)] = true
}

// IsTracked reports whether c was declared change-tracked.
func IsTracked(c Component) bool {
	trackedTypes.mu.RLock()
	defer trackedTypes.mu.RUnlock()
	return trackedTypes.set[componentKey(c)]
}
