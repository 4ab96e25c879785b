package schedule

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Scheduler owns every stage and its registered systems, builds each
// stage's execution graph on registration, and drives per-tick execution
// over a bounded worker pool (§4.9, §5).
type Scheduler[K comparable] struct {
	mu   sync.RWMutex
	pool *semaphore.Weighted

	order  []string
	stages map[string]*stageEntry[K]
}

type stageEntry[K comparable] struct {
	cfg         StageConfig
	systems     []System[K]
	graph       *ExecutionGraph[K]
	metrics     *stageMetrics
	accumulator float64
}

// NewScheduler creates a Scheduler bounded to the given worker count. A
// non-positive count is treated as 1 (fully serial dispatch).
func NewScheduler[K comparable](workers int) *Scheduler[K] {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler[K]{
		pool:   semaphore.NewWeighted(int64(workers)),
		stages: make(map[string]*stageEntry[K]),
	}
}

// RegisterStage adds a new stage. Registering a stage twice replaces its
// configuration but keeps any already-registered systems.
func (s *Scheduler[K]) RegisterStage(cfg StageConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stages[cfg.Name]; !ok {
		s.order = append(s.order, cfg.Name)
	}
	existing := s.stages[cfg.Name]
	entry := &stageEntry[K]{cfg: cfg, metrics: &stageMetrics{}}
	if existing != nil {
		entry.systems = existing.systems
	}
	s.stages[cfg.Name] = entry
	return s.rebuildLocked(cfg.Name)
}

// RegisterSystem adds sys to stage, rebuilding (and validating) the
// stage's execution graph immediately so registration-time cycles are
// rejected per §4.9.2. A rejected system (duplicate name or cycle) is
// logged once and its error returned.
func (s *Scheduler[K]) RegisterSystem(stage string, sys System[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.stages[stage]
	if !ok {
		return UnknownStageError{Stage: stage}
	}
	for _, existing := range entry.systems {
		if existing.Name() == sys.Name() {
			err := DuplicateSystemError{Stage: stage, System: sys.Name()}
			log.Printf("%v", err)
			return err
		}
	}
	entry.systems = append(entry.systems, sys)
	if err := s.rebuildLocked(stage); err != nil {
		log.Printf("schedule: rejected system %q: %v", sys.Name(), err)
		return err
	}
	return nil
}

func (s *Scheduler[K]) rebuildLocked(stage string) error {
	entry := s.stages[stage]
	graph, err := buildGraph[K](stage, entry.systems, entry.cfg.Execution)
	if err != nil {
		entry.systems = entry.systems[:len(entry.systems)-1]
		return err
	}
	entry.graph = graph
	return nil
}

// Graph returns the built execution graph for a stage, for introspection
// (e.g. DOT export).
func (s *Scheduler[K]) Graph(stage string) (*ExecutionGraph[K], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.stages[stage]
	if !ok {
		return nil, false
	}
	return entry.graph, true
}

// RunTick advances every registered stage by one synchronization tick
// (§4.9.5): per_frame stages run once, in registration order; fixed_hz
// stages accumulate dt and drain as many whole periods as have elapsed;
// manual and passive stages are skipped.
func (s *Scheduler[K]) RunTick(ctx context.Context, dt float64, workerID int) error {
	s.mu.RLock()
	order := make([]string, len(s.order))
	copy(order, s.order)
	s.mu.RUnlock()

	for _, name := range order {
		s.mu.RLock()
		entry := s.stages[name]
		s.mu.RUnlock()

		switch entry.cfg.Schedule {
		case PerFrame:
			if err := s.runStageEntry(ctx, entry, workerID); err != nil {
				return err
			}
		case FixedHz:
			if entry.cfg.FixedHzPeriod <= 0 {
				continue
			}
			s.mu.Lock()
			entry.accumulator += dt
			steps := 0
			for entry.accumulator >= entry.cfg.FixedHzPeriod {
				entry.accumulator -= entry.cfg.FixedHzPeriod
				steps++
			}
			s.mu.Unlock()
			for i := 0; i < steps; i++ {
				if err := s.runStageEntry(ctx, entry, workerID); err != nil {
					return err
				}
			}
		case Manual, Passive:
			// skipped by the automatic driver
		}
	}
	return nil
}

// RunStage runs one stage unconditionally, regardless of its schedule
// model. Used to drive Manual stages explicitly.
func (s *Scheduler[K]) RunStage(ctx context.Context, name string, workerID int) error {
	s.mu.RLock()
	entry, ok := s.stages[name]
	s.mu.RUnlock()
	if !ok {
		return UnknownStageError{Stage: name}
	}
	return s.runStageEntry(ctx, entry, workerID)
}

func (s *Scheduler[K]) runStageEntry(ctx context.Context, entry *stageEntry[K], workerID int) error {
	if entry.cfg.OnStageBegin != nil {
		entry.cfg.OnStageBegin()
	}
	entry.metrics.recordBegin()
	start := nowFunc()

	var err error
	switch entry.cfg.Execution {
	case StagePassive:
		// no graph to run
	case Serial:
		err = s.runSerial(entry)
	default:
		err = s.runConcurrent(ctx, entry)
	}

	entry.metrics.recordEnd(sinceFunc(start))
	if entry.cfg.OnStageEnd != nil {
		entry.cfg.OnStageEnd()
	}
	return err
}

// runSerial executes every node inline, in graph order (the graph is
// already a linear chain for Serial stages).
func (s *Scheduler[K]) runSerial(entry *stageEntry[K]) error {
	if entry.graph == nil {
		return nil
	}
	for _, n := range entry.graph.Nodes {
		if err := s.execNode(n, 0); err != nil {
			return err
		}
	}
	return nil
}

// runConcurrent executes a deterministic or parallel stage's DAG
// (§4.9.4): every node's deps_remaining atomic starts at its static
// in-degree; a node dispatches to the worker pool as soon as it reaches
// zero, and the stage blocks until every node has run.
func (s *Scheduler[K]) runConcurrent(ctx context.Context, entry *stageEntry[K]) error {
	if entry.graph == nil || len(entry.graph.Nodes) == 0 {
		return nil
	}
	nodes := entry.graph.Nodes
	remaining := make([]int32, len(nodes))
	for i, n := range nodes {
		remaining[i] = n.depCount
	}

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once
	recordErr := func(err error) {
		if err != nil {
			errOnce.Do(func() { firstErr = err })
		}
	}

	var dispatch func(idx int)
	dispatch = func(idx int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.pool.Acquire(ctx, 1); err != nil {
				recordErr(err)
				return
			}
			defer s.pool.Release(1)

			if err := s.execNode(nodes[idx], idx); err != nil {
				recordErr(err)
				return
			}
			for _, next := range nodes[idx].outgoing {
				if atomic.AddInt32(&remaining[next], -1) == 0 {
					dispatch(next)
				}
			}
		}()
	}

	for i, n := range nodes {
		if n.depCount == 0 {
			dispatch(i)
		}
	}
	wg.Wait()
	return firstErr
}

func (s *Scheduler[K]) execNode(n *ExecutionNode[K], workerID int) error {
	start := nowFunc()
	err := n.Sys.Run(workerID)
	n.metrics.record(sinceFunc(start))
	return err
}

// StageReport returns a metrics snapshot for the named stage, including
// every node's timing sample (§4.9.6).
func (s *Scheduler[K]) StageReport(name string) (StageSample, error) {
	s.mu.RLock()
	entry, ok := s.stages[name]
	s.mu.RUnlock()
	if !ok {
		return StageSample{}, UnknownStageError{Stage: name}
	}
	begins, ends, total := entry.metrics.sample()
	out := StageSample{Stage: name, Begins: begins, Ends: ends, Total: total}
	if entry.graph != nil {
		for _, n := range entry.graph.Nodes {
			out.Nodes = append(out.Nodes, n.metrics.sample(n.Name))
		}
	}
	return out, nil
}

func nowFunc() time.Time   { return time.Now() }
func sinceFunc(t time.Time) time.Duration { return time.Since(t) }
