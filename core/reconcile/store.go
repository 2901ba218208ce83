package reconcile

import (
	"context"
	"iter"

	"chunk-mender/core/chunk"
)

// Store defines the world store operations the reconciliation engine and the
// repair orchestrator rely on. A Store is one dimension of one world.
// The primary store is mutated and persisted; backup stores are only read and
// closed as soon as their scan completes.
type Store interface {
	// Name returns a human readable identifier (usually the world path).
	Name() string

	// ChunkCount returns the number of chunks the store currently holds.
	ChunkCount(ctx context.Context) (int, error)

	// AllChunks yields every chunk coordinate present in the store.
	// Order is unspecified. A non-nil error ends the sequence.
	AllChunks(ctx context.Context) iter.Seq2[chunk.Coord, error]

	// LoadChunk decodes the chunk at coord. Decode failures are returned as a
	// Malformed outcome; the error is reserved for I/O failures.
	// Implementations must allow concurrent LoadChunk calls.
	LoadChunk(ctx context.Context, coord chunk.Coord) (chunk.Load, error)

	// DeleteChunksInBox removes every chunk whose column the box touches.
	DeleteChunksInBox(ctx context.Context, box chunk.Box) error

	// CopyBlocksFrom copies the voxels of box in src to the same-sized box at
	// origin in this store.
	CopyBlocksFrom(ctx context.Context, src Store, box chunk.Box, origin chunk.Point) error

	// GenerateLights recomputes lighting for chunks that need it.
	GenerateLights(ctx context.Context) error

	// SaveInPlace persists pending changes to the store's own location.
	SaveInPlace(ctx context.Context) error

	// SupportsRegionRepair reports whether the store uses region files that
	// can be structurally repaired.
	SupportsRegionRepair() bool

	// PreloadRegions opens every region file so RegionFiles is complete.
	PreloadRegions(ctx context.Context) error

	// RegionFiles returns the open region files keyed by position.
	RegionFiles() map[chunk.RegionPos]RegionFile

	// Close releases the store. Unsaved changes are discarded.
	Close() error
}

// RegionFile is a single on-disk region container.
type RegionFile interface {
	// Path returns the file location.
	Path() string

	// Repair validates and fixes the file's header and offsets in place.
	Repair(ctx context.Context) (RegionRepair, error)
}

// RegionRepair summarizes the structural fixes applied to one region file.
type RegionRepair struct {
	// Region is the region position.
	Region chunk.RegionPos `json:"region"`

	// Kept counts chunk entries that were valid.
	Kept int `json:"kept"`

	// Dropped counts entries removed (bad offsets, overlaps, bad lengths).
	Dropped int `json:"dropped"`

	// Relocated counts chunks moved to the slot matching their coordinates.
	Relocated int `json:"relocated"`

	// Reclaimed is the number of bytes freed by compaction.
	Reclaimed int64 `json:"reclaimed"`
}

// Changed reports whether the repair modified anything besides compaction.
func (r RegionRepair) Changed() bool {
	return r.Dropped > 0 || r.Relocated > 0
}
