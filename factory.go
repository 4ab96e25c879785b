package foundry

import "github.com/TheBitDrifter/table"

// factory implements the factory pattern for foundry's constructor
// surface, mirroring the teacher's single global Factory variable.
type factory struct{}

// Factory is the global factory instance for creating foundry components.
var Factory factory

// NewStorage creates a new Storage backed by the given table schema.
func (f factory) NewStorage(schema table.Schema) *Storage {
	return newStorage(schema)
}

// NewQuery creates a new, empty Query.
func (f factory) NewQuery() Query {
	return newQuery()
}

// NewCursor creates a new Cursor over sto matching query.
func (f factory) NewCursor(query QueryNode, sto *Storage) *Cursor {
	return newCursor(query, sto)
}

// NewWorld creates a World with a fresh schema and storage.
func (f factory) NewWorld() *World {
	return newWorld(table.Factory.NewSchema())
}

// FactoryNewComponent creates a new AccessibleComponent for type T.
func FactoryNewComponent[T any]() AccessibleComponent[T] {
	iden := table.FactoryNewElementType[T]()
	return AccessibleComponent[T]{
		Component: iden,
		Accessor:  table.FactoryNewAccessor[T](iden),
	}
}

// FactoryNewCache creates a new Cache with the given capacity.
func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
