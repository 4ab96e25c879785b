/*
Package foundry provides a high-throughput Entity-Component-System (ECS)
runtime core for games and simulations.

Foundry keeps entities with identical component sets packed together in
chunked, archetype-organized column storage for cache-friendly iteration,
defers every structural mutation (create, add, remove, destroy) to an
explicit synchronization point so systems can iterate safely while other
workers stage changes, and schedules systems over a dependency- and
conflict-aware execution graph.

Core Concepts:

  - EntityID: a generational identifier that represents a game object.
  - Component: a data container that defines entity attributes.
  - Archetype: a chunked collection of entities sharing the same component types.
  - Query/Cursor: a way to find and iterate entities by component composition.
  - World: the façade tying storage, staging, and the system scheduler together.

Basic Usage:

	world := foundry.Factory.NewWorld()

	position := foundry.FactoryNewComponent[Position]()
	velocity := foundry.FactoryNewComponent[Velocity]()

	const mainWorker foundry.WorkerID = 0
	e := world.CreateEntity(mainWorker, position, velocity)
	world.EndFrame()

	query := foundry.Factory.NewQuery()
	queryNode := query.And(position, velocity)
	cursor := foundry.Factory.NewCursor(queryNode, world.Storage())

	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

Foundry is a standalone library; it has no rendering or input concerns.
*/
package foundry
