package foundry

import "github.com/TheBitDrifter/table"

// AccessibleComponent extends a base Component with table-based
// accessibility, letting callers fetch a typed pointer to a component's
// value for the entity at a cursor position or for a specific EntityID.
type AccessibleComponent[T any] struct {
	Component
	table.Accessor[T]
}

// GetFromCursor retrieves a pointer to this component's value for the
// entity at the cursor's current row.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return c.Get(cursor.rowIdx, cursor.curChunk.tbl)
}

// GetFromCursorSafe retrieves a pointer to this component's value,
// reporting whether the current archetype actually carries it.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.Accessor.Check(cursor.curChunk.tbl) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// CheckCursor reports whether the cursor's current archetype carries this
// component at all.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return c.Accessor.Check(cursor.curChunk.tbl)
}

// MarkChanged flags this component's value at the cursor's current row as
// dirty for this frame (§3.3, §4.3.6). Call it after mutating the pointer
// returned by GetFromCursor, never before.
func (c AccessibleComponent[T]) MarkChanged(cursor *Cursor) {
	cursor.curChunk.markChanged(c.Component, cursor.rowIdx)
}

// GetFromEntity retrieves a pointer to this component's value for any live
// entity, independent of cursor state.
func (c AccessibleComponent[T]) GetFromEntity(sto *Storage, e EntityID) (*T, bool) {
	arch, ok := sto.ArchetypeOf(e)
	if !ok {
		return nil, false
	}
	ch, row, ok := arch.rowOf(e)
	if !ok {
		return nil, false
	}
	return c.Get(row, ch.tbl), true
}
