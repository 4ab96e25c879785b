package foundry

import "github.com/TheBitDrifter/table"

// Default configuration values (§6.3).
const (
	DefaultInitialEntityCapacity   = 1024
	DefaultThreadLocalEntitySlice  = 256
	DefaultArchetypeChunkMax       = 10
	DefaultArchetypeStartingCap    = 32
	DefaultThreadPoolWorkers       = 4
)

// Config holds process-wide configuration for the storage and table
// layers. It is a package-level var, following the teacher's convention
// of a single mutable configuration object rather than dependency-injected
// options structs.
var Config config = config{
	InitialEntityCapacity:  DefaultInitialEntityCapacity,
	ThreadLocalEntitySlice: DefaultThreadLocalEntitySlice,
	ArchetypeChunkMax:      DefaultArchetypeChunkMax,
	ArchetypeStartingCap:   DefaultArchetypeStartingCap,
	ThreadPoolWorkers:      DefaultThreadPoolWorkers,
}

type config struct {
	tableEvents table.TableEvents

	// InitialEntityCapacity sizes the initial per-kind metadata arrays and
	// entity-ID range (§6.3).
	InitialEntityCapacity int

	// ThreadLocalEntitySlice is how many entity IDs each worker reserves
	// per refill (§4.2, §6.3).
	ThreadLocalEntitySlice int

	// ArchetypeChunkMax is the number of chunks per archetype (§3.3).
	ArchetypeChunkMax int

	// ArchetypeStartingCap is the initial row capacity of a chunk (§3.3).
	ArchetypeStartingCap int

	// ThreadPoolWorkers is the scheduler's worker count (§6.3).
	ThreadPoolWorkers int
}

// SetTableEvents configures the table event callbacks.
func (c *config) SetTableEvents(te table.TableEvents) {
	c.tableEvents = te
}
