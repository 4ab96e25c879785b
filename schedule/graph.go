package schedule

// ExecutionNode is one system placed into a stage's execution graph
// (§4.9.3, §4.9.4).
type ExecutionNode[K comparable] struct {
	Name string
	Sys  System[K]

	// incoming holds indices (into ExecutionGraph.Nodes) of nodes that
	// must execute before this one.
	incoming []int
	// outgoing holds indices of nodes waiting on this one.
	outgoing []int
	// depCount is the static number of incoming edges, copied into each
	// run's atomic deps_remaining counter.
	depCount int32

	metrics nodeMetrics
}

// ExecutionGraph is the per-stage DAG built from a system set under a
// given execution model (§4.9.3).
type ExecutionGraph[K comparable] struct {
	Stage string
	Model ExecutionModel
	Nodes []*ExecutionNode[K]
	index map[string]int
}

// buildGraph constructs the execution graph for one stage's registered
// systems, in registration order, under model.
func buildGraph[K comparable](stageName string, systems []System[K], model ExecutionModel) (*ExecutionGraph[K], error) {
	g := &ExecutionGraph[K]{Stage: stageName, Model: model, index: make(map[string]int, len(systems))}
	if model == StagePassive {
		return g, nil
	}

	order, err := topoOrder(stageName, systems)
	if err != nil {
		return nil, err
	}

	switch model {
	case Parallel:
		for _, sys := range order {
			g.addNode(sys)
		}
		return g, nil

	case Serial:
		for i, sys := range order {
			idx := g.addNode(sys)
			if i > 0 {
				g.link(idx-1, idx)
			}
		}
		return g, nil

	case Deterministic:
		batches := packBatches(order)
		nameToIdx := make(map[string]int, len(order))
		// earlier holds every system of every batch emitted so far, so a
		// node is linked to each earlier node it depends on or conflicts
		// with, not only to members of the immediately preceding batch.
		var earlier []string
		for _, batch := range batches {
			for _, sys := range batch {
				idx := g.addNode(sys)
				nameToIdx[sys.Name()] = idx
			}
			for _, sys := range batch {
				for _, prevName := range earlier {
					prevSys := systemByName(order, prevName)
					if dependsOn[K](sys, prevName) || conflicts[K](sys, prevSys) {
						g.link(nameToIdx[prevName], nameToIdx[sys.Name()])
					}
				}
			}
			earlier = append(earlier, namesOf(batch)...)
		}
		return g, nil

	default:
		return g, nil
	}
}

func (g *ExecutionGraph[K]) addNode(sys System[K]) int {
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, &ExecutionNode[K]{Name: sys.Name(), Sys: sys})
	g.index[sys.Name()] = idx
	return idx
}

func (g *ExecutionGraph[K]) link(from, to int) {
	g.Nodes[from].outgoing = append(g.Nodes[from].outgoing, to)
	g.Nodes[to].incoming = append(g.Nodes[to].incoming, from)
	g.Nodes[to].depCount++
}

// topoOrder runs Kahn's algorithm over hard-deps only, preserving
// registration order as the tie-break among nodes with equal in-degree.
// Returns CyclicDependencyError if a cycle prevents full ordering.
func topoOrder[K comparable](stageName string, systems []System[K]) ([]System[K], error) {
	byName := make(map[string]System[K], len(systems))
	indeg := make(map[string]int, len(systems))
	for _, s := range systems {
		byName[s.Name()] = s
		if _, ok := indeg[s.Name()]; !ok {
			indeg[s.Name()] = 0
		}
	}
	for _, s := range systems {
		for _, dep := range s.HardDeps() {
			if _, ok := byName[dep]; ok {
				indeg[s.Name()]++
			}
		}
	}

	remaining := make([]System[K], len(systems))
	copy(remaining, systems)

	var order []System[K]
	for len(remaining) > 0 {
		progressed := false
		var next []System[K]
		for _, s := range remaining {
			if indeg[s.Name()] == 0 {
				order = append(order, s)
				progressed = true
				for _, other := range remaining {
					if other.Name() == s.Name() {
						continue
					}
					if dependsOn[K](other, s.Name()) {
						indeg[other.Name()]--
					}
				}
			} else {
				next = append(next, s)
			}
		}
		if !progressed {
			var cycle []string
			for _, s := range remaining {
				cycle = append(cycle, s.Name())
			}
			return nil, CyclicDependencyError{Stage: stageName, Cycle: cycle}
		}
		remaining = next
	}
	return order, nil
}

// packBatches greedily packs a topologically valid order into batches
// where no two systems in a batch conflict and every system's hard-deps
// sit in a strictly earlier batch (§4.9.3 step 2).
func packBatches[K comparable](order []System[K]) [][]System[K] {
	var batches [][]System[K]
	batchOf := make(map[string]int, len(order))

	for _, s := range order {
		minBatch := 0
		for _, dep := range s.HardDeps() {
			if b, ok := batchOf[dep]; ok && b+1 > minBatch {
				minBatch = b + 1
			}
		}
		placed := -1
		for b := minBatch; b < len(batches); b++ {
			ok := true
			for _, other := range batches[b] {
				if conflicts[K](s, other) {
					ok = false
					break
				}
			}
			if ok {
				batches[b] = append(batches[b], s)
				placed = b
				break
			}
		}
		if placed == -1 {
			for len(batches) <= minBatch {
				batches = append(batches, nil)
			}
			batches[minBatch] = append(batches[minBatch], s)
			placed = minBatch
		}
		batchOf[s.Name()] = placed
	}

	var out [][]System[K]
	for _, b := range batches {
		if len(b) > 0 {
			out = append(out, b)
		}
	}
	return out
}

func namesOf[K comparable](systems []System[K]) []string {
	names := make([]string, len(systems))
	for i, s := range systems {
		names[i] = s.Name()
	}
	return names
}

func systemByName[K comparable](systems []System[K], name string) System[K] {
	for _, s := range systems {
		if s.Name() == name {
			return s
		}
	}
	return nil
}
