package runner

import (
	"sync"
	"time"

	"github.com/standardbeagle/diffscope/internal/finding"
)

// EntrySchemaVersion guards cached values across incompatible layout
// changes; a mismatched entry is treated as a miss.
const EntrySchemaVersion = 1

// Entry is one cached analyzer result: the findings plus the files the
// analyzer actually touched when producing them.
type Entry struct {
	SchemaVersion  int               `msgpack:"schema"`
	Findings       []finding.Finding `msgpack:"findings"`
	ProcessedFiles []string          `msgpack:"processedFiles"`
	// ChangedFiles snapshots the changeset's changed-path set at store
	// time, so invalidation can tell newly changed files apart from the
	// ones the entry was computed over.
	ChangedFiles []string  `msgpack:"changedFiles"`
	StoredAt     time.Time `msgpack:"storedAt"`
}

// Store is the runner's cache dependency. Implementations must treat every
// internal failure as a miss: the runner never distinguishes "absent" from
// "broken", and a correct result must always be producible with no cache
// at all.
type Store interface {
	Get(key string) (*Entry, bool)
	Put(key string, e *Entry)
	Close() error
}

// NopStore backs the cache-disabled path.
type NopStore struct{}

func (NopStore) Get(string) (*Entry, bool) { return nil, false }
func (NopStore) Put(string, *Entry)        {}
func (NopStore) Close() error              { return nil }

// MemoryStore is a process-local Store used by tests and watch mode.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || e.SchemaVersion != EntrySchemaVersion {
		return nil, false
	}
	return e, true
}

func (s *MemoryStore) Put(key string, e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }
