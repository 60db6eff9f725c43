// Package store is the thin collaborator around the hnsw core described in
// spec.md §6: a JSON-backed mapping from caller-supplied external ids to
// (vector, metadata) pairs, persisted as a single human-readable document,
// with an explicit Rebuild step that (re)constructs an in-memory hnsw.Graph
// from the current records.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/google/renameio"

	"github.com/TFMV/vectordb/hnsw"
)

// defaults mirror the concrete scenarios of spec.md §8.
const (
	defaultM              = 16
	defaultMMax0          = 32
	defaultEfConstruction = 200
	defaultEfSearch       = 50
)

// Record is one stored vector and its opaque, caller-defined metadata.
type Record struct {
	ID       uint64          `json:"id"`
	Vec      []float32       `json:"vec"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// document is the exact on-disk shape required by spec.md §6:
// { dim, nextId, vectors: [{id, vec, metadata}] }, extended with an
// optional seed so a store pinned at init time stays reproducible (P6)
// across process restarts, not just within one.
type document struct {
	Dim     int      `json:"dim"`
	NextID  uint64   `json:"nextId"`
	Seed    *int64   `json:"seed,omitempty"`
	Vectors []Record `json:"vectors"`
}

// Option configures a Store at Init time.
type Option func(*Store)

// WithSeed pins the random number generator used by every future Rebuild,
// supplementing spec.md §5's "seed MAY be parameterised" through to the
// record store's own construction API.
func WithSeed(seed int64) Option {
	return func(s *Store) { s.seed = &seed }
}

// SearchResult pairs a query hit's store-visible id and metadata with its
// raw distance from the core.
type SearchResult struct {
	ID       uint64
	Dist     float32
	Metadata json.RawMessage
}

// Store is the JSON record store plus the hnsw index rebuilt from it. It is
// safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	path string

	dim    int
	nextID uint64
	seed   *int64 // nil: Rebuild uses a time-seeded RNG

	records     []Record
	recordIndex map[uint64]int // external id -> index into records

	graph              *hnsw.Graph
	externalByInternal []uint64 // internal id (== rebuild-time iteration index) -> external id
	stale              bool
}

// Open loads the record store document at path, or returns an empty,
// uninitialized store if the file does not exist. Call Init before Add on
// a freshly opened store.
func Open(path string) (*Store, error) {
	s := &Store{
		path:        path,
		recordIndex: make(map[uint64]int),
		stale:       true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}

	s.dim = doc.Dim
	s.nextID = doc.NextID
	s.seed = doc.Seed
	s.records = doc.Vectors
	for i, r := range s.records {
		s.recordIndex[r.ID] = i
	}

	return s, nil
}

// Init fixes the store's vector dimensionality. It fails if the store's
// dimensionality is already set or it already carries records. WithSeed pins the RNG used by every future
// Rebuild, persisted across process restarts.
func (s *Store) Init(dim int, opts ...Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) > 0 || s.dim != 0 {
		return ErrAlreadyInitialized
	}
	if dim <= 0 {
		return ErrDimensionMismatch
	}

	s.dim = dim
	for _, opt := range opts {
		opt(s)
	}
	return s.saveLocked()
}

// Dim returns the store's fixed dimensionality, or 0 if uninitialized.
func (s *Store) Dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// IDs returns every live external id, in ascending order.
func (s *Store) IDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := maps.Keys(s.recordIndex)
	slices.Sort(ids)
	return ids
}

// Add appends a new record and returns its assigned external id.
func (s *Store) Add(vec []float32, metadata json.RawMessage) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		return 0, ErrNotInitialized
	}
	if len(vec) != s.dim {
		return 0, ErrDimensionMismatch
	}

	cp := make([]float32, len(vec))
	copy(cp, vec)

	id := s.nextID
	s.nextID++
	s.recordIndex[id] = len(s.records)
	s.records = append(s.records, Record{ID: id, Vec: cp, Metadata: metadata})
	s.stale = true

	if err := s.saveLocked(); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the record stored under id.
func (s *Store) Get(id uint64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.recordIndex[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return s.records[idx], nil
}

// Update replaces the vector and metadata stored under id.
func (s *Store) Update(id uint64, vec []float32, metadata json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.recordIndex[id]
	if !ok {
		return ErrNotFound
	}
	if len(vec) != s.dim {
		return ErrDimensionMismatch
	}

	cp := make([]float32, len(vec))
	copy(cp, vec)
	s.records[idx].Vec = cp
	s.records[idx].Metadata = metadata
	s.stale = true

	return s.saveLocked()
}

// Delete removes the record stored under id.
func (s *Store) Delete(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.recordIndex[id]
	if !ok {
		return ErrNotFound
	}

	s.records = append(s.records[:idx], s.records[idx+1:]...)
	delete(s.recordIndex, id)
	for i := idx; i < len(s.records); i++ {
		s.recordIndex[s.records[i].ID] = i
	}
	s.stale = true

	return s.saveLocked()
}

// Rebuild constructs a fresh hnsw.Graph of capacity equal to the current
// record count (minimum 1), inserting records in their current iteration
// order with external label equal to that order's index, and records the
// internal-id -> external-id side table needed to translate search
// results back to store-visible ids (spec.md §6, §9).
func (s *Store) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		return ErrNotInitialized
	}

	capacityHint := len(s.records)
	if capacityHint < 1 {
		capacityHint = 1
	}

	var graphOpts []hnsw.Option
	if s.seed != nil {
		graphOpts = append(graphOpts, hnsw.WithSeed(*s.seed))
	}

	g, err := hnsw.New(s.dim, capacityHint, defaultM, defaultMMax0, defaultEfConstruction, graphOpts...)
	if err != nil {
		return fmt.Errorf("store: rebuild: %w", err)
	}

	external := make([]uint64, len(s.records))
	for i, rec := range s.records {
		if _, err := g.Insert(rec.Vec, uint64(i)); err != nil {
			return fmt.Errorf("store: rebuild: insert record %d: %w", rec.ID, err)
		}
		external[i] = rec.ID
	}

	s.graph = g
	s.externalByInternal = external
	s.stale = false
	return nil
}

// Search runs SearchKnn against the current index and translates results
// back to store-visible ids and metadata. It returns ErrIndexStale if
// Rebuild has never run, or has not run since the last mutation.
func (s *Store) Search(q []float32, k, efSearch int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil || s.stale {
		return nil, ErrIndexStale
	}

	hits, err := s.graph.SearchKnn(q, k, efSearch)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		extID := s.externalByInternal[h.Label]
		idx := s.recordIndex[extID]
		out[i] = SearchResult{
			ID:       extID,
			Dist:     h.Dist,
			Metadata: s.records[idx].Metadata,
		}
	}
	return out, nil
}

// Analyzer exposes the underlying graph's layer introspection, or nil if
// the index has never been built.
func (s *Store) Analyzer() *hnsw.Analyzer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return nil
	}
	return &hnsw.Analyzer{Graph: s.graph}
}

// saveLocked atomically rewrites the document at s.path. Callers must hold
// s.mu.
func (s *Store) saveLocked() error {
	doc := document{
		Dim:     s.dim,
		NextID:  s.nextID,
		Seed:    s.seed,
		Vectors: s.records,
	}

	tmp, err := renameio.TempFile("", s.path)
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	defer tmp.Cleanup()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("store: save: encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("store: save: flush: %w", err)
	}
	if err := tmp.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}
