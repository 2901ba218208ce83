package world

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"chunk-mender/core/chunk"
	"chunk-mender/core/reconcile"

	"golang.org/x/sync/singleflight"
)

// Dimension is one dimension of a world and implements reconcile.Store.
type Dimension struct {
	level     *Level
	sel       Selector
	regionDir string

	mu      sync.RWMutex
	regions map[chunk.RegionPos]*regionFile
	sf      singleflight.Group

	// pending holds chunks created or modified since the last save.
	pending map[chunk.Coord]*Data
	// deleted holds chunks removed since the last save.
	deleted map[chunk.Coord]struct{}
}

func newDimension(l *Level, sel Selector, regionDir string) *Dimension {
	return &Dimension{
		level:     l,
		sel:       sel,
		regionDir: regionDir,
		regions:   make(map[chunk.RegionPos]*regionFile),
		pending:   make(map[chunk.Coord]*Data),
		deleted:   make(map[chunk.Coord]struct{}),
	}
}

// Name returns the world name the dimension was opened with.
func (d *Dimension) Name() string {
	if d.sel == Overworld {
		return d.level.name
	}
	return d.level.name + " [" + d.sel.String() + "]"
}

// Selector returns the dimension selector.
func (d *Dimension) Selector() Selector {
	return d.sel
}

// region returns the open region file at pos, opening it on first use.
// Concurrent first opens of the same file share one open.
func (d *Dimension) region(pos chunk.RegionPos) (*regionFile, error) {
	d.mu.RLock()
	rf, ok := d.regions[pos]
	d.mu.RUnlock()
	if ok {
		return rf, nil
	}

	v, err, _ := d.sf.Do(pos.String(), func() (any, error) {
		d.mu.RLock()
		rf, ok := d.regions[pos]
		d.mu.RUnlock()
		if ok {
			return rf, nil
		}

		path := filepath.Join(d.regionDir, regionFileName(pos))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return (*regionFile)(nil), nil
		}

		rf, err := openRegion(path, pos)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		d.regions[pos] = rf
		d.mu.Unlock()
		return rf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*regionFile), nil
}

// ChunkCount returns the number of chunks in the dimension, pending changes included.
func (d *Dimension) ChunkCount(ctx context.Context) (int, error) {
	n := 0
	for _, err := range d.AllChunks(ctx) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// AllChunks yields every chunk coordinate on disk that was not deleted, then
// every pending chunk not yet on disk.
func (d *Dimension) AllChunks(ctx context.Context) iter.Seq2[chunk.Coord, error] {
	return func(yield func(chunk.Coord, error) bool) {
		files, err := listRegions(d.regionDir)
		if err != nil {
			yield(chunk.Coord{}, err)
			return
		}

		seen := make(map[chunk.Coord]struct{})
		for _, pos := range sortedRegions(files) {
			if err := ctx.Err(); err != nil {
				yield(chunk.Coord{}, err)
				return
			}
			rf, err := d.region(pos)
			if err != nil {
				yield(chunk.Coord{}, err)
				return
			}
			if rf == nil {
				continue
			}
			for _, coord := range rf.coords() {
				if d.isDeleted(coord) {
					continue
				}
				seen[coord] = struct{}{}
				if !yield(coord, nil) {
					return
				}
			}
		}

		for _, coord := range d.pendingCoords() {
			if _, ok := seen[coord]; ok {
				continue
			}
			if !yield(coord, nil) {
				return
			}
		}
	}
}

func (d *Dimension) isDeleted(coord chunk.Coord) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.deleted[coord]
	return ok
}

func (d *Dimension) pendingCoords() []chunk.Coord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	coords := make([]chunk.Coord, 0, len(d.pending))
	for coord := range d.pending {
		coords = append(coords, coord)
	}
	return coords
}

// LoadChunk decodes the chunk at coord.
func (d *Dimension) LoadChunk(ctx context.Context, coord chunk.Coord) (chunk.Load, error) {
	_, err := d.ReadChunk(ctx, coord)
	if errors.Is(err, ErrMalformedChunk) {
		return chunk.MalformedChunk(err), nil
	}
	if err != nil {
		return chunk.Load{}, err
	}
	return chunk.LoadedChunk(), nil
}

// ReadChunk returns the decoded chunk at coord. Pending changes take
// precedence over disk. Decode failures wrap ErrMalformedChunk.
func (d *Dimension) ReadChunk(ctx context.Context, coord chunk.Coord) (*Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	data, pending := d.pending[coord]
	_, deleted := d.deleted[coord]
	d.mu.RUnlock()

	if pending {
		return data, nil
	}
	if deleted {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotPresent, coord)
	}
	return d.readDisk(coord)
}

func (d *Dimension) readDisk(coord chunk.Coord) (*Data, error) {
	rf, err := d.region(coord.Region())
	if err != nil {
		return nil, err
	}
	if rf == nil {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotPresent, coord)
	}

	raw, err := rf.readRaw(coord.Local())
	if errors.Is(err, ErrChunkNotPresent) {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotPresent, coord)
	}
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", coord, err)
	}

	data, err := decodeChunk(raw.compression, raw.payload)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", coord, err)
	}
	if data.Coord != coord {
		return nil, fmt.Errorf("%w: chunk %s stored in slot for %s", ErrMalformedChunk, data.Coord, coord)
	}
	return data, nil
}

// PutChunk stages data for the next save, replacing any chunk at its coordinate.
func (d *Dimension) PutChunk(data *Data) error {
	if d.level.readOnly {
		return ErrReadOnly
	}
	if err := data.validate(); err != nil {
		return fmt.Errorf("invalid chunk %s: %w", data.Coord, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[data.Coord] = data
	delete(d.deleted, data.Coord)
	return nil
}

// DeleteChunksInBox removes every chunk the box touches.
func (d *Dimension) DeleteChunksInBox(_ context.Context, box chunk.Box) error {
	if d.level.readOnly {
		return ErrReadOnly
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, coord := range box.Chunks() {
		delete(d.pending, coord)
		d.deleted[coord] = struct{}{}
	}
	return nil
}

// CopyBlocksFrom copies the voxels of box in src to origin in d. src must be
// a *Dimension. Source chunks that are absent are skipped; destination chunks
// are created as needed.
func (d *Dimension) CopyBlocksFrom(ctx context.Context, src reconcile.Store, box chunk.Box, origin chunk.Point) error {
	if d.level.readOnly {
		return ErrReadOnly
	}
	source, ok := src.(*Dimension)
	if !ok {
		return fmt.Errorf("cannot copy from %T", src)
	}

	targets := make(map[chunk.Coord]*Data)
	offset := origin.Sub(box.Origin)

	for _, sc := range box.Chunks() {
		sdata, err := source.ReadChunk(ctx, sc)
		if errors.Is(err, ErrChunkNotPresent) {
			continue
		}
		if err != nil {
			return err
		}

		sbase := sc.Box().Origin
		// Clamp to the rows that land inside the destination height.
		overlap := box.Intersect(sc.Box()).Intersect(chunk.Box{
			Origin: chunk.Point{X: sbase.X, Y: -offset.Y, Z: sbase.Z},
			Size:   chunk.Point{X: chunk.Size, Y: chunk.Height, Z: chunk.Size},
		})
		if overlap.Empty() {
			continue
		}

		for x := overlap.Origin.X; x < overlap.Origin.X+overlap.Size.X; x++ {
			for z := overlap.Origin.Z; z < overlap.Origin.Z+overlap.Size.Z; z++ {
				dx, dz := x+offset.X, z+offset.Z
				dc := chunk.Coord{X: int32(dx >> 4), Z: int32(dz >> 4)}
				target, err := d.copyTarget(ctx, targets, dc)
				if err != nil {
					return err
				}
				for y := overlap.Origin.Y; y < overlap.Origin.Y+overlap.Size.Y; y++ {
					id := sdata.Block(x-sbase.X, y, z-sbase.Z)
					target.SetBlock(dx&(chunk.Size-1), y+offset.Y, dz&(chunk.Size-1), id)
				}
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for coord, data := range targets {
		d.pending[coord] = data
		delete(d.deleted, coord)
	}
	return nil
}

// copyTarget returns a private copy of the destination chunk, starting from
// pending data, then disk, then an empty chunk.
func (d *Dimension) copyTarget(ctx context.Context, targets map[chunk.Coord]*Data, coord chunk.Coord) (*Data, error) {
	if t, ok := targets[coord]; ok {
		return t, nil
	}

	var t *Data
	existing, err := d.ReadChunk(ctx, coord)
	switch {
	case err == nil:
		t = existing.Clone(coord)
	case errors.Is(err, ErrChunkNotPresent), errors.Is(err, ErrMalformedChunk):
		t = NewData(coord)
	default:
		return nil, err
	}
	t.LightPopulated = false
	targets[coord] = t
	return t, nil
}

// GenerateLights relights every chunk changed since the last save.
func (d *Dimension) GenerateLights(ctx context.Context) error {
	if d.level.readOnly {
		return ErrReadOnly
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, data := range d.pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !data.LightPopulated {
			data.relight()
		}
	}
	return nil
}

// SaveInPlace writes pending changes to the region files they touch and
// refreshes level.yaml.
func (d *Dimension) SaveInPlace(ctx context.Context) error {
	if d.level.readOnly {
		return ErrReadOnly
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	compression := compressionByName[d.level.meta.Compression]
	touched := make(map[chunk.RegionPos]struct{})
	for coord := range d.pending {
		touched[coord.Region()] = struct{}{}
	}
	for coord := range d.deleted {
		touched[coord.Region()] = struct{}{}
	}

	now := uint32(time.Now().Unix())
	for _, pos := range sortedRegions(touched) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.saveRegion(pos, compression, now); err != nil {
			return err
		}
	}

	clear(d.pending)
	clear(d.deleted)

	d.level.meta.LastSaved = time.Now().UTC().Truncate(time.Second)
	return d.level.writeMeta()
}

// saveRegion must be called with d.mu held.
func (d *Dimension) saveRegion(pos chunk.RegionPos, compression Compression, now uint32) error {
	path := filepath.Join(d.regionDir, regionFileName(pos))
	rf := d.regions[pos]
	if rf == nil {
		if _, err := os.Stat(path); err == nil {
			opened, err := openRegion(path, pos)
			if err != nil {
				return err
			}
			rf = opened
			d.regions[pos] = rf
		}
	}

	records := make(map[int]rawChunk)
	if rf != nil {
		existing, err := rf.records()
		if err != nil {
			return fmt.Errorf("failed to read region %s: %w", path, err)
		}
		records = existing
	}

	for coord := range d.deleted {
		if coord.Region() == pos {
			delete(records, coord.Local())
		}
	}
	for coord, data := range d.pending {
		if coord.Region() != pos {
			continue
		}
		payload, err := encodeChunk(data, compression)
		if err != nil {
			return err
		}
		records[coord.Local()] = rawChunk{compression: compression, payload: payload, timestamp: now}
	}

	if rf == nil {
		if len(records) == 0 {
			return nil
		}
		if err := os.MkdirAll(d.regionDir, 0o755); err != nil {
			return fmt.Errorf("failed to create region directory: %w", err)
		}
		data, err := encodeRegion(records)
		if err != nil {
			return fmt.Errorf("failed to encode region %s: %w", path, err)
		}
		if err := writeFileAtomic(path, data); err != nil {
			return err
		}
		opened, err := openRegion(path, pos)
		if err != nil {
			return err
		}
		d.regions[pos] = opened
		return nil
	}

	_, err := rf.rewrite(records)
	return err
}

// SupportsRegionRepair reports whether the level declares a region format version.
func (d *Dimension) SupportsRegionRepair() bool {
	return d.level.meta.FormatVersion != 0
}

// PreloadRegions opens every region file of the dimension.
func (d *Dimension) PreloadRegions(ctx context.Context) error {
	files, err := listRegions(d.regionDir)
	if err != nil {
		return err
	}
	for pos := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.region(pos); err != nil {
			return err
		}
	}
	return nil
}

// RegionFiles returns the open region files.
func (d *Dimension) RegionFiles() map[chunk.RegionPos]reconcile.RegionFile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	files := make(map[chunk.RegionPos]reconcile.RegionFile, len(d.regions))
	for pos, rf := range d.regions {
		files[pos] = rf
	}
	return files
}

// Close closes every region file and the level. Unsaved changes are discarded.
func (d *Dimension) Close() error {
	d.mu.Lock()
	var errs []error
	for pos, rf := range d.regions {
		if err := rf.close(); err != nil {
			errs = append(errs, err)
		}
		delete(d.regions, pos)
	}
	clear(d.pending)
	clear(d.deleted)
	d.mu.Unlock()

	if err := d.level.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// sortedRegions returns the keys of m ordered by Z, then X.
func sortedRegions[V any](m map[chunk.RegionPos]V) []chunk.RegionPos {
	return slices.SortedFunc(maps.Keys(m), func(a, b chunk.RegionPos) int {
		if n := cmp.Compare(a.Z, b.Z); n != 0 {
			return n
		}
		return cmp.Compare(a.X, b.X)
	})
}

var _ reconcile.Store = (*Dimension)(nil)
