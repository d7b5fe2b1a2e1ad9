package board

import (
	"sync"

	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

// Snapshot is an immutable view of the store handed to subscribers.
type Snapshot struct {
	Version uint64
	Records []pipeline.Record
}

// Column returns one status group ordered by mode.
func (s Snapshot) Column(status pipeline.Status, mode pipeline.SortMode) []pipeline.Record {
	return pipeline.Column(s.Records, status, mode)
}

// Store is the in-memory ordered collection the board renders from.
// It never validates patches and has no side effects besides notifying
// subscribers.
type Store struct {
	mu      sync.RWMutex
	records []pipeline.Record
	index   map[string]int
	version uint64

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
		subs:  make(map[int]func(Snapshot)),
	}
}

// Load replaces the whole collection. Records are unique by id.
func (s *Store) Load(records []pipeline.Record) {
	s.mu.Lock()
	s.records = make([]pipeline.Record, 0, len(records))
	s.index = make(map[string]int, len(records))
	for _, r := range records {
		// A repeated id keeps its first slot and its last value.
		if i, dup := s.index[r.ID]; dup {
			s.records[i] = r.Clone()
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r.Clone())
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Apply mutates one record and returns its previous value.
// ok is false when no record has the patch's id.
func (s *Store) Apply(p pipeline.Patch) (prev pipeline.Record, ok bool) {
	s.mu.Lock()
	prev, ok = s.applyLocked(p)
	if !ok {
		s.mu.Unlock()
		return pipeline.Record{}, false
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return prev, true
}

// ApplyAll applies a patch set under one version bump and one notification.
// Previous values are returned for the patches that matched a record.
func (s *Store) ApplyAll(patches []pipeline.Patch) []pipeline.Record {
	s.mu.Lock()
	prevs := make([]pipeline.Record, 0, len(patches))
	for _, p := range patches {
		if prev, ok := s.applyLocked(p); ok {
			prevs = append(prevs, prev)
		}
	}
	if len(prevs) == 0 {
		s.mu.Unlock()
		return prevs
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return prevs
}

// Remove drops a record. It reports whether the record existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].ID] = j
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

func (s *Store) Get(id string) (pipeline.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return pipeline.Record{}, false
	}
	return s.records[i].Clone(), true
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Column returns one status group ordered by mode.
func (s *Store) Column(status pipeline.Status, mode pipeline.SortMode) []pipeline.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pipeline.Column(s.records, status, mode)
}

// Subscribe registers fn to receive a snapshot after every mutation.
// The returned func unregisters it.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) applyLocked(p pipeline.Patch) (pipeline.Record, bool) {
	i, ok := s.index[p.ID]
	if !ok {
		return pipeline.Record{}, false
	}
	prev := s.records[i]
	s.records[i] = p.ApplyTo(prev)
	return prev, true
}

func (s *Store) snapshotLocked() Snapshot {
	recs := make([]pipeline.Record, len(s.records))
	for i, r := range s.records {
		recs[i] = r.Clone()
	}
	return Snapshot{Version: s.version, Records: recs}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
