package foundry

import (
	"context"

	"github.com/TheBitDrifter/table"
	"github.com/cindercore/foundry/schedule"
)

// SystemContext is passed to a System's Run method each time the
// scheduler dispatches it: the world it runs against and the worker slot
// it should stage mutations under (§4.9.1).
type SystemContext struct {
	World    *World
	WorkerID WorkerID
}

// System is one unit of per-stage work (§4.9.1). Reads/Writes/ResReads/
// ResWrites/HardDeps drive the scheduler's conflict and dependency
// analysis (§4.9.2); Run performs the actual work.
type System interface {
	Name() string
	Reads() []Component
	Writes() []Component
	ResReads() []string
	ResWrites() []string
	HardDeps() []string
	Run(ctx *SystemContext) error
}

// StageConfig configures a stage registered with World.RegisterStage.
type StageConfig struct {
	Name          string
	Schedule      schedule.ScheduleModel
	Execution     schedule.ExecutionModel
	FixedHzPeriod float64
	OnStageBegin  func()
	OnStageEnd    func()
}

// World is the façade tying archetype storage, the staging pipeline, and
// the system scheduler together (§6.1's top-level handle surface).
type World struct {
	storage   *Storage
	staging   *stagingPipeline
	scheduler *schedule.Scheduler[TypeUUID]
	workerOrd []WorkerID
}

func newWorld(schema table.Schema) *World {
	sto := newStorage(schema)
	return &World{
		storage:   sto,
		staging:   newStagingPipeline(sto),
		scheduler: schedule.NewScheduler[TypeUUID](Config.ThreadPoolWorkers),
		workerOrd: []WorkerID{0},
	}
}

// Storage returns the world's archetype storage, for building queries
// and cursors against it.
func (w *World) Storage() *Storage { return w.storage }

// SetWorkerOrder fixes the deterministic order in which worker buffers
// are drained at Synchronize (§4.8 step 2, §5). The default is a single
// worker, ID 0.
func (w *World) SetWorkerOrder(order ...WorkerID) {
	w.workerOrd = append([]WorkerID(nil), order...)
}

// CreateEntity stages a new entity's creation and returns its ID
// immediately, usable the same tick for further staged operations (e.g.
// AddComponent) even though its archetype row is not materialized until
// EndFrame. SetParent on it returns StaleEntityError until then.
func (w *World) CreateEntity(worker WorkerID, components ...Component) EntityID {
	return w.staging.CreateEntity(worker, components...)
}

// NewEntities immediately creates n entities, bypassing staging. Intended
// for population before any system has started iterating.
func (w *World) NewEntities(worker WorkerID, n int, components ...Component) ([]EntityID, error) {
	return w.storage.NewEntities(worker, n, components...)
}

// AddComponent stages a component addition.
func (w *World) AddComponent(worker WorkerID, e EntityID, c Component) error {
	return w.staging.AddComponent(worker, e, c)
}

// RemoveComponent stages a component removal.
func (w *World) RemoveComponent(worker WorkerID, e EntityID, c Component) error {
	return w.staging.RemoveComponent(worker, e, c)
}

// DestroyEntity stages an entity's destruction.
func (w *World) DestroyEntity(worker WorkerID, e EntityID) error {
	return w.staging.DestroyEntity(worker, e)
}

// EndFrame commits every staged mutation in the fixed synchronization
// order (§4.8) and returns the EntityIDs recycled this pass.
func (w *World) EndFrame() ([]EntityID, error) {
	return w.staging.Synchronize(w.workerOrd)
}

// RegisterStage adds a stage to the world's scheduler.
func (w *World) RegisterStage(cfg StageConfig) error {
	return w.scheduler.RegisterStage(schedule.StageConfig{
		Name:          cfg.Name,
		Schedule:      cfg.Schedule,
		Execution:     cfg.Execution,
		FixedHzPeriod: cfg.FixedHzPeriod,
		OnStageBegin:  cfg.OnStageBegin,
		OnStageEnd:    cfg.OnStageEnd,
	})
}

// RegisterSystem registers sys into stage, adapting its Component-typed
// read/write sets into the TypeUUIDs the scheduler's conflict analysis
// operates on.
func (w *World) RegisterSystem(stage string, sys System) error {
	return w.scheduler.RegisterSystem(stage, &systemAdapter{world: w, sys: sys})
}

// Graph exposes a stage's built execution graph, e.g. for DOT export.
func (w *World) Graph(stage string) (*schedule.ExecutionGraph[TypeUUID], bool) {
	return w.scheduler.Graph(stage)
}

// StageReport returns a stage's accumulated metrics (§4.9.6).
func (w *World) StageReport(stage string) (schedule.StageSample, error) {
	return w.scheduler.StageReport(stage)
}

// Tick runs every per_frame and elapsed fixed_hz stage once (§4.9.5),
// then commits the resulting staged mutations via EndFrame. Systems in a
// serial stage run with worker slot 0; in a deterministic or parallel
// stage each system receives its execution-graph node index as its
// worker slot.
func (w *World) Tick(ctx context.Context, dt float64) ([]EntityID, error) {
	if err := w.scheduler.RunTick(ctx, dt, 0); err != nil {
		return nil, err
	}
	return w.EndFrame()
}

// RunStage runs one stage unconditionally (used to drive Manual stages),
// without committing synchronization.
func (w *World) RunStage(ctx context.Context, name string) error {
	return w.scheduler.RunStage(ctx, name, 0)
}

// systemAdapter adapts a foundry.System onto schedule.System[TypeUUID],
// translating its Component-typed declarations into TypeUUIDs resolved
// against the world's registry.
type systemAdapter struct {
	world *World
	sys   System
}

func (a *systemAdapter) Name() string { return a.sys.Name() }

func (a *systemAdapter) Reads() []TypeUUID {
	return a.toTypeUUIDs(a.sys.Reads())
}

func (a *systemAdapter) Writes() []TypeUUID {
	return a.toTypeUUIDs(a.sys.Writes())
}

func (a *systemAdapter) ResReads() []string  { return a.sys.ResReads() }
func (a *systemAdapter) ResWrites() []string { return a.sys.ResWrites() }
func (a *systemAdapter) HardDeps() []string  { return a.sys.HardDeps() }

func (a *systemAdapter) Run(workerID int) error {
	return a.sys.Run(&SystemContext{World: a.world, WorkerID: WorkerID(workerID)})
}

func (a *systemAdapter) toTypeUUIDs(components []Component) []TypeUUID {
	out := make([]TypeUUID, len(components))
	for i, c := range components {
		out[i] = componentTypeUUID(a.world.storage.Registry(), c)
	}
	return out
}
