package foundry

import "fmt"

type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return fmt.Sprintf("storage is currently locked")
}

type EntityRelationError struct {
	child, parent EntityID
}

func (e EntityRelationError) Error() string {
	return fmt.Sprintf("child (%v) already has parent %v", e.child, e.parent)
}

type ComponentExistsError struct {
	Component Component
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already exists on entity: %T", e.Component)
}

type ComponentNotFoundError struct {
	Component Component
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity: %T", e.Component)
}

// ZeroTypeConflictError is returned when ZeroType is asked to bind a kind's
// null slot to a type name that conflicts with an existing binding (§4.1).
type ZeroTypeConflictError struct {
	Kind     ComponentKind
	TypeName string
	Slot     uint16
}

func (e ZeroTypeConflictError) Error() string {
	return fmt.Sprintf("kind %d already has a null-type binding (%q at slot %d)", e.Kind, e.TypeName, e.Slot)
}

// StaleEntityError marks a recoverable, silently-ignorable condition (§7):
// an operation targeted an entity whose generation no longer matches the
// live slot. Callers observing this error should treat it as a no-op, not
// propagate it as a failure.
type StaleEntityError struct {
	Entity EntityID
}

func (e StaleEntityError) Error() string {
	return fmt.Sprintf("entity %v is stale (generation mismatch)", e.Entity)
}

// NullEntityError is raised when a staging record names the null entity.
// Per the spec's Open Questions, null-entity staging records are treated
// as errors rather than silently skipped.
type NullEntityError struct{}

func (e NullEntityError) Error() string {
	return "staging operation referenced the null entity"
}

// CyclicDependencyError is a fatal registration error (§7): a system's
// hard_deps form a cycle, detected at registration.
type CyclicDependencyError struct {
	Chain []string
}

func (e CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic system dependency: %v", e.Chain)
}

// MissingDependencyError describes a recoverable graph-build-time
// condition (§7): a system's declared dependency was never registered.
// The scheduler does not return it: a hard dependency naming a system
// absent from the stage is ignored when the graph is built, and the
// depending system stays in the graph.
type MissingDependencyError struct {
	System     string
	Dependency string
}

func (e MissingDependencyError) Error() string {
	return fmt.Sprintf("system %q depends on unregistered system %q", e.System, e.Dependency)
}

// UnregisteredComponentError is a fatal registration error (§7): a system
// declared a read/write set referencing a component type never registered.
type UnregisteredComponentError struct {
	System    string
	TypeName  string
	Direction string
}

func (e UnregisteredComponentError) Error() string {
	return fmt.Sprintf("system %q declares %s of unregistered component %q", e.System, e.Direction, e.TypeName)
}

// StageConflictError is a fatal registration error (§7): a stage-level
// conflict was detected. Registering a stage name twice is not a conflict:
// Scheduler.RegisterStage replaces the earlier configuration.
type StageConflictError struct {
	Stage string
}

func (e StageConflictError) Error() string {
	return fmt.Sprintf("stage %q conflicts with an already-registered stage", e.Stage)
}

// TooManyChunksError is returned when an archetype needs a new chunk but
// has already reached Config.ArchetypeChunkMax (§3.3, §4.3.1).
type TooManyChunksError struct {
	Archetype uint64
}

func (e TooManyChunksError) Error() string {
	return fmt.Sprintf("archetype %#x has reached its chunk limit", e.Archetype)
}
