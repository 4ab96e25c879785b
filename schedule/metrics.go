package schedule

import (
	"sync/atomic"
	"time"
)

// nodeMetrics records per-node timing (§4.9.6). Readers and writers
// coordinate through a reader-count + writer-flag spinlock rather than a
// sync.RWMutex, so a sampler thread never blocks on a long-held lock and
// the executing worker's write path stays a handful of atomic ops.
type nodeMetrics struct {
	lock spinRW

	fastest  time.Duration
	slowest  time.Duration
	total    time.Duration
	executed uint64
}

// NodeSample is a read-only snapshot of a node's recorded metrics.
type NodeSample struct {
	Name     string
	Fastest  time.Duration
	Slowest  time.Duration
	Average  time.Duration
	Total    time.Duration
	Executed uint64
}

func (m *nodeMetrics) record(d time.Duration) {
	m.lock.Lock()
	if m.executed == 0 || d < m.fastest {
		m.fastest = d
	}
	if d > m.slowest {
		m.slowest = d
	}
	m.total += d
	m.executed++
	m.lock.Unlock()
}

func (m *nodeMetrics) sample(name string) NodeSample {
	m.lock.RLock()
	defer m.lock.RUnlock()
	s := NodeSample{Name: name, Fastest: m.fastest, Slowest: m.slowest, Total: m.total, Executed: m.executed}
	if m.executed > 0 {
		s.Average = m.total / time.Duration(m.executed)
	}
	return s
}

// stageMetrics records per-stage begin/end counters and total time.
type stageMetrics struct {
	lock spinRW

	begins, ends uint64
	total        time.Duration
}

// StageSample is a read-only snapshot of a stage's recorded metrics.
type StageSample struct {
	Stage  string
	Begins uint64
	Ends   uint64
	Total  time.Duration
	Nodes  []NodeSample
}

func (m *stageMetrics) recordBegin() {
	m.lock.Lock()
	m.begins++
	m.lock.Unlock()
}

func (m *stageMetrics) recordEnd(d time.Duration) {
	m.lock.Lock()
	m.ends++
	m.total += d
	m.lock.Unlock()
}

func (m *stageMetrics) sample() (uint64, uint64, time.Duration) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.begins, m.ends, m.total
}

// spinRW is a reader-count + writer-flag spinlock (§4.9.6): any number of
// readers proceed concurrently; a writer spins until both the writer
// flag is clear and the reader count has drained to zero.
type spinRW struct {
	writer  int32
	readers int32
}

func (s *spinRW) Lock() {
	for !atomic.CompareAndSwapInt32(&s.writer, 0, 1) {
	}
	for atomic.LoadInt32(&s.readers) != 0 {
	}
}

func (s *spinRW) Unlock() {
	atomic.StoreInt32(&s.writer, 0)
}

func (s *spinRW) RLock() {
	for {
		if atomic.LoadInt32(&s.writer) != 0 {
			continue
		}
		atomic.AddInt32(&s.readers, 1)
		if atomic.LoadInt32(&s.writer) == 0 {
			return
		}
		atomic.AddInt32(&s.readers, -1)
	}
}

func (s *spinRW) RUnlock() {
	atomic.AddInt32(&s.readers, -1)
}
