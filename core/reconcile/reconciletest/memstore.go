// Package reconciletest provides an in-memory reconcile.Store for tests.
package reconciletest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"sync"

	"chunk-mender/core/chunk"
	"chunk-mender/core/reconcile"
)

// ErrMalformed is the decode error reported for malformed chunks.
var ErrMalformed = errors.New("malformed chunk")

// Chunk is the content of one in-memory chunk.
type Chunk struct {
	// Data stands in for the voxel payload.
	Data string
	// Malformed makes LoadChunk report a decode failure.
	Malformed bool
}

// Store is an in-memory reconcile.Store recording every mutation.
type Store struct {
	mu sync.Mutex

	name    string
	chunks  map[chunk.Coord]Chunk
	regions map[chunk.RegionPos]reconcile.RegionFile

	// Region enables SupportsRegionRepair.
	Region bool

	// SaveErr is returned by SaveInPlace when set.
	SaveErr error
	// RepairErr is returned by region repairs when set.
	RepairErr error
	// LoadErr is returned by LoadChunk when set.
	LoadErr error

	Deleted   []chunk.Coord
	Copied    []chunk.Coord
	Saves     int
	Lights    int
	Preloads  int
	Repairs   int
	Closed    bool
	CloseErr  error
	saved     map[chunk.Coord]Chunk
	callOrder []string
}

// New creates a store holding chunks.
func New(name string, chunks map[chunk.Coord]Chunk) *Store {
	s := &Store{
		name:   name,
		chunks: make(map[chunk.Coord]Chunk, len(chunks)),
	}
	maps.Copy(s.chunks, chunks)
	return s
}

func (s *Store) record(op string) {
	s.callOrder = append(s.callOrder, op)
}

// Calls returns the order of mutating and lifecycle calls.
func (s *Store) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.callOrder...)
}

// Chunk returns the current content at coord.
func (s *Store) Chunk(coord chunk.Coord) (Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[coord]
	return c, ok
}

// Saved returns the content persisted by the last SaveInPlace, or nil.
func (s *Store) Saved() map[chunk.Coord]Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

func (s *Store) Name() string { return s.name }

func (s *Store) ChunkCount(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks), nil
}

func (s *Store) AllChunks(context.Context) iter.Seq2[chunk.Coord, error] {
	s.mu.Lock()
	coords := make([]chunk.Coord, 0, len(s.chunks))
	for c := range s.chunks {
		coords = append(coords, c)
	}
	s.mu.Unlock()

	return func(yield func(chunk.Coord, error) bool) {
		for _, c := range coords {
			if !yield(c, nil) {
				return
			}
		}
	}
}

func (s *Store) LoadChunk(_ context.Context, coord chunk.Coord) (chunk.Load, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return chunk.Load{}, s.LoadErr
	}
	c, ok := s.chunks[coord]
	if !ok {
		return chunk.Load{}, fmt.Errorf("chunk %s not present", coord)
	}
	if c.Malformed {
		return chunk.MalformedChunk(ErrMalformed), nil
	}
	return chunk.LoadedChunk(), nil
}

func (s *Store) DeleteChunksInBox(_ context.Context, box chunk.Box) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, coord := range box.Chunks() {
		delete(s.chunks, coord)
		s.Deleted = append(s.Deleted, coord)
	}
	s.record("delete")
	return nil
}

func (s *Store) CopyBlocksFrom(_ context.Context, src reconcile.Store, box chunk.Box, origin chunk.Point) error {
	other, ok := src.(*Store)
	if !ok {
		return fmt.Errorf("unsupported source %T", src)
	}
	if box.Origin != origin {
		return fmt.Errorf("translated copies are not supported")
	}

	other.mu.Lock()
	var copied []chunk.Coord
	found := make(map[chunk.Coord]Chunk)
	for _, coord := range box.Chunks() {
		if c, ok := other.chunks[coord]; ok {
			found[coord] = c
			copied = append(copied, coord)
		}
	}
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.chunks, found)
	s.Copied = append(s.Copied, copied...)
	s.record("copy")
	return nil
}

func (s *Store) GenerateLights(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lights++
	s.record("lights")
	return nil
}

func (s *Store) SaveInPlace(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("save")
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Saves++
	s.saved = maps.Clone(s.chunks)
	return nil
}

func (s *Store) SupportsRegionRepair() bool { return s.Region }

func (s *Store) PreloadRegions(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Preloads++
	s.record("preload")
	s.regions = make(map[chunk.RegionPos]reconcile.RegionFile)
	for c := range s.chunks {
		pos := c.Region()
		s.regions[pos] = &regionFile{store: s, pos: pos}
	}
	return nil
}

func (s *Store) RegionFiles() map[chunk.RegionPos]reconcile.RegionFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regions
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	s.record("close")
	return s.CloseErr
}

type regionFile struct {
	store *Store
	pos   chunk.RegionPos
}

func (r *regionFile) Path() string {
	return r.store.name + "/" + r.pos.String()
}

func (r *regionFile) Repair(context.Context) (reconcile.RegionRepair, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.Repairs++
	r.store.record("repair")
	if r.store.RepairErr != nil {
		return reconcile.RegionRepair{}, r.store.RepairErr
	}
	kept := 0
	for c := range r.store.chunks {
		if c.Region() == r.pos {
			kept++
		}
	}
	return reconcile.RegionRepair{Region: r.pos, Kept: kept}, nil
}

var _ reconcile.Store = (*Store)(nil)
