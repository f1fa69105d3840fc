package index

import (
	"sync"
	"sync/atomic"
)

// MemoryIndex owns the append-only corpus and publishes a freshly built
// Snapshot after every ingestion. Writers are serialised by mu; readers load
// the current snapshot without locking.
type MemoryIndex struct {
	mu         sync.Mutex
	documents  []string
	generation uint64
	current    atomic.Pointer[Snapshot]
}

// IngestResult describes one ingestion call.
type IngestResult struct {
	FirstID  int
	Count    int
	Snapshot *Snapshot
}

// IDs returns the document IDs assigned by the ingestion.
func (r IngestResult) IDs() []int {
	ids := make([]int, r.Count)
	for i := range ids {
		ids[i] = r.FirstID + i
	}
	return ids
}

func NewMemoryIndex() *MemoryIndex {
	m := &MemoryIndex{}
	m.current.Store(Build(nil, 0))
	return m
}

// Ingest appends documents in order, assigning sequential IDs, then rebuilds
// the index over the entire corpus.
func (m *MemoryIndex) Ingest(documents []string) IngestResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	first := len(m.documents)
	m.documents = append(m.documents, documents...)
	snap := m.rebuildLocked()
	return IngestResult{
		FirstID:  first,
		Count:    len(documents),
		Snapshot: snap,
	}
}

// Rebuild recomputes the index from the current corpus. The result is equal
// to the previous snapshot apart from its generation.
func (m *MemoryIndex) Rebuild() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuildLocked()
}

func (m *MemoryIndex) rebuildLocked() *Snapshot {
	m.generation++
	snap := Build(m.documents, m.generation)
	m.current.Store(snap)
	return snap
}

// Snapshot returns the most recently published index. It is never nil.
func (m *MemoryIndex) Snapshot() *Snapshot {
	return m.current.Load()
}
