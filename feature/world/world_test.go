package world

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"chunk-mender/core/chunk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(x, z int32) chunk.Coord { return chunk.Coord{X: x, Z: z} }

// newWorld creates an empty world and returns its directory and overworld.
func newWorld(t *testing.T, meta Meta) (string, *Dimension) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "world")
	level, err := Create(dir, meta)
	require.NoError(t, err)
	dim, err := level.Dimension(Overworld)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dim.Close() })
	return dir, dim
}

func reopen(t *testing.T, dir string, opts OpenOptions) *Dimension {
	t.Helper()
	dim, err := OpenDimension(dir, Overworld, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dim.Close() })
	return dim
}

// sampleChunk returns a chunk with a marker block at (3,10,4).
func sampleChunk(coord chunk.Coord, id byte) *Data {
	d := NewData(coord)
	d.SetBlock(3, 10, 4, id)
	d.SetBlock(0, 0, 0, 1)
	return d
}

func encoded(t *testing.T, d *Data) rawChunk {
	t.Helper()
	payload, err := encodeChunk(d, CompressionZlib)
	require.NoError(t, err)
	return rawChunk{compression: CompressionZlib, payload: payload, timestamp: 1}
}

func writeRegion(t *testing.T, dir string, pos chunk.RegionPos, records map[int]rawChunk) string {
	t.Helper()
	regionDir := filepath.Join(dir, Overworld.RegionDir())
	require.NoError(t, os.MkdirAll(regionDir, 0o755))
	data, err := encodeRegion(records)
	require.NoError(t, err)
	path := filepath.Join(regionDir, regionFileName(pos))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func collect(t *testing.T, dim *Dimension) []chunk.Coord {
	t.Helper()
	var coords []chunk.Coord
	for coord, err := range dim.AllChunks(context.Background()) {
		require.NoError(t, err)
		coords = append(coords, coord)
	}
	return coords
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir, dim := newWorld(t, Meta{Name: "survival", FormatVersion: 1})

	require.NoError(t, dim.PutChunk(sampleChunk(c(0, 0), 7)))
	require.NoError(t, dim.PutChunk(sampleChunk(c(-1, 33), 8)))
	require.NoError(t, dim.SaveInPlace(ctx))
	require.NoError(t, dim.Close())

	reopened := reopen(t, dir, OpenOptions{})
	assert.ElementsMatch(t, []chunk.Coord{c(0, 0), c(-1, 33)}, collect(t, reopened))

	n, err := reopened.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	load, err := reopened.LoadChunk(ctx, c(-1, 33))
	require.NoError(t, err)
	assert.True(t, load.OK())

	data, err := reopened.ReadChunk(ctx, c(-1, 33))
	require.NoError(t, err)
	assert.Equal(t, byte(8), data.Block(3, 10, 4))
	assert.Equal(t, byte(1), data.Block(0, 0, 0))

	assert.FileExists(t, filepath.Join(dir, "region", "r.-1.1.mcr"))
	assert.False(t, reopened.level.Meta().LastSaved.IsZero())
}

func TestCompressionRoundTrip(t *testing.T) {
	for name, comp := range compressionByName {
		t.Run(name, func(t *testing.T) {
			in := sampleChunk(c(4, -9), 3)
			payload, err := encodeChunk(in, comp)
			require.NoError(t, err)

			out, err := decodeChunk(comp, payload)
			require.NoError(t, err)
			assert.Equal(t, in.Coord, out.Coord)
			assert.Equal(t, in.Blocks, out.Blocks)
		})
	}
}

func TestLoadChunkMalformed(t *testing.T) {
	ctx := context.Background()
	dir, dim := newWorld(t, Meta{Name: "broken"})
	require.NoError(t, dim.Close())

	missingLight, err := json.Marshal(map[string]any{
		"x": 1, "z": 0, "blocks": make([]byte, blockCount), "height_map": make([]byte, columnCount),
	})
	require.NoError(t, err)
	wrongLength, err := json.Marshal(document{X: 3, Z: 0, Blocks: []byte{1, 2}, SkyLight: []byte{}, HeightMap: []byte{}})
	require.NoError(t, err)

	writeRegion(t, dir, chunk.RegionPos{}, map[int]rawChunk{
		c(0, 0).Local(): {compression: CompressionZlib, payload: []byte("not zlib")},
		c(1, 0).Local(): {compression: CompressionNone, payload: missingLight},
		c(2, 0).Local(): encoded(t, sampleChunk(c(5, 5), 1)),
		c(3, 0).Local(): {compression: CompressionNone, payload: wrongLength},
		c(4, 0).Local(): {compression: Compression(9), payload: []byte("{}")},
		c(5, 0).Local(): encoded(t, sampleChunk(c(5, 0), 1)),
	})

	reopened := reopen(t, dir, OpenOptions{})
	for _, coord := range []chunk.Coord{c(0, 0), c(1, 0), c(2, 0), c(3, 0), c(4, 0)} {
		load, err := reopened.LoadChunk(ctx, coord)
		require.NoError(t, err, coord)
		assert.Equal(t, chunk.Malformed, load.Status, coord)
		assert.ErrorIs(t, load.Reason, ErrMalformedChunk, coord)
	}

	load, err := reopened.LoadChunk(ctx, c(5, 0))
	require.NoError(t, err)
	assert.True(t, load.OK())

	_, err = reopened.ReadChunk(ctx, c(9, 9))
	assert.ErrorIs(t, err, ErrChunkNotPresent)
}

func TestDeleteAndCloseLeavesDiskUntouched(t *testing.T) {
	ctx := context.Background()
	dir, dim := newWorld(t, Meta{Name: "survival"})
	require.NoError(t, dim.PutChunk(sampleChunk(c(0, 0), 7)))
	require.NoError(t, dim.PutChunk(sampleChunk(c(1, 0), 7)))
	require.NoError(t, dim.SaveInPlace(ctx))

	path := filepath.Join(dir, "region", "r.0.0.mcr")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, dim.DeleteChunksInBox(ctx, c(1, 0).Box()))
	assert.Equal(t, []chunk.Coord{c(0, 0)}, collect(t, dim))
	_, err = dim.ReadChunk(ctx, c(1, 0))
	assert.ErrorIs(t, err, ErrChunkNotPresent)
	require.NoError(t, dim.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	reopened := reopen(t, dir, OpenOptions{})
	assert.ElementsMatch(t, []chunk.Coord{c(0, 0), c(1, 0)}, collect(t, reopened))
}

func TestDeleteThenSave(t *testing.T) {
	ctx := context.Background()
	dir, dim := newWorld(t, Meta{Name: "survival"})
	require.NoError(t, dim.PutChunk(sampleChunk(c(0, 0), 7)))
	require.NoError(t, dim.PutChunk(sampleChunk(c(1, 0), 7)))
	require.NoError(t, dim.SaveInPlace(ctx))

	require.NoError(t, dim.DeleteChunksInBox(ctx, c(1, 0).Box()))
	require.NoError(t, dim.SaveInPlace(ctx))
	require.NoError(t, dim.Close())

	reopened := reopen(t, dir, OpenOptions{})
	assert.Equal(t, []chunk.Coord{c(0, 0)}, collect(t, reopened))
}

func TestCopyBlocksFrom(t *testing.T) {
	ctx := context.Background()
	_, backup := newWorld(t, Meta{Name: "backup"})
	require.NoError(t, backup.PutChunk(sampleChunk(c(1, 2), 9)))
	require.NoError(t, backup.SaveInPlace(ctx))

	dir, primary := newWorld(t, Meta{Name: "primary"})

	box := c(1, 2).Box()
	require.NoError(t, primary.CopyBlocksFrom(ctx, backup, box, box.Origin))
	// Absent source chunks are skipped.
	require.NoError(t, primary.CopyBlocksFrom(ctx, backup, c(7, 7).Box(), c(7, 7).Box().Origin))
	assert.Equal(t, []chunk.Coord{c(1, 2)}, collect(t, primary))

	data, err := primary.ReadChunk(ctx, c(1, 2))
	require.NoError(t, err)
	assert.Equal(t, byte(9), data.Block(3, 10, 4))
	assert.False(t, data.LightPopulated)

	require.NoError(t, primary.GenerateLights(ctx))
	assert.True(t, data.LightPopulated)
	assert.Equal(t, byte(11), data.HeightMap[4*chunk.Size+3])
	assert.Equal(t, byte(0), data.SkyLightAt(3, 10, 4))
	assert.Equal(t, byte(maxLight), data.SkyLightAt(3, 11, 4))

	require.NoError(t, primary.SaveInPlace(ctx))
	require.NoError(t, primary.Close())

	reopened := reopen(t, dir, OpenOptions{})
	saved, err := reopened.ReadChunk(ctx, c(1, 2))
	require.NoError(t, err)
	assert.Equal(t, byte(9), saved.Block(3, 10, 4))
	assert.True(t, saved.LightPopulated)
}

func TestCopyBlocksFromOffset(t *testing.T) {
	ctx := context.Background()
	_, backup := newWorld(t, Meta{Name: "backup"})
	src := sampleChunk(c(0, 0), 9)
	src.SetBlock(12, 5, 5, 6)
	require.NoError(t, backup.PutChunk(src))

	_, primary := newWorld(t, Meta{Name: "primary"})

	// Shift by 8 voxels so the source chunk straddles two destination chunks.
	box := c(0, 0).Box()
	origin := box.Origin.Add(chunk.Point{X: 8})
	require.NoError(t, primary.CopyBlocksFrom(ctx, backup, box, origin))
	assert.ElementsMatch(t, []chunk.Coord{c(0, 0), c(1, 0)}, collect(t, primary))

	left, err := primary.ReadChunk(ctx, c(0, 0))
	require.NoError(t, err)
	assert.Equal(t, byte(1), left.Block(8, 0, 0))
	assert.Equal(t, byte(9), left.Block(11, 10, 4))
	assert.Equal(t, byte(0), left.Block(0, 0, 0))

	right, err := primary.ReadChunk(ctx, c(1, 0))
	require.NoError(t, err)
	assert.Equal(t, byte(6), right.Block(4, 5, 5))
}

func TestCopyBlocksFromRequiresDimension(t *testing.T) {
	_, primary := newWorld(t, Meta{Name: "primary"})
	err := primary.CopyBlocksFrom(context.Background(), nil, c(0, 0).Box(), chunk.Point{})
	assert.ErrorContains(t, err, "cannot copy from")
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	dir, dim := newWorld(t, Meta{Name: "survival"})
	require.NoError(t, dim.Close())

	ro := reopen(t, dir, OpenOptions{ReadOnly: true})
	assert.ErrorIs(t, ro.PutChunk(NewData(c(0, 0))), ErrReadOnly)
	assert.ErrorIs(t, ro.DeleteChunksInBox(ctx, c(0, 0).Box()), ErrReadOnly)
	assert.ErrorIs(t, ro.GenerateLights(ctx), ErrReadOnly)
	assert.ErrorIs(t, ro.SaveInPlace(ctx), ErrReadOnly)
}

func TestRegionRepair(t *testing.T) {
	ctx := context.Background()
	dir, dim := newWorld(t, Meta{Name: "survival", FormatVersion: 1})
	require.NoError(t, dim.Close())

	path := writeRegion(t, dir, chunk.RegionPos{}, map[int]rawChunk{
		0: encoded(t, sampleChunk(c(0, 0), 1)),
		1: encoded(t, sampleChunk(c(2, 0), 2)),  // belongs in slot 2
		5: {compression: CompressionNone, payload: []byte("garbage")},
		6: encoded(t, sampleChunk(c(40, 0), 3)), // another region
		7: encoded(t, sampleChunk(c(0, 0), 4)),  // slot 0 is taken
	})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.BigEndian.PutUint32(raw[3*4:], 1<<8|1)                        // points into the header
	binary.BigEndian.PutUint32(raw[4*4:], binary.BigEndian.Uint32(raw[0:])) // overlaps slot 0
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	reopened := reopen(t, dir, OpenOptions{})
	assert.True(t, reopened.SupportsRegionRepair())
	require.NoError(t, reopened.PreloadRegions(ctx))

	files := reopened.RegionFiles()
	require.Len(t, files, 1)
	rf := files[chunk.RegionPos{}]
	assert.Equal(t, path, rf.Path())

	report, err := rf.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, 1, report.Relocated)
	assert.Equal(t, 5, report.Dropped)
	assert.Positive(t, report.Reclaimed)
	assert.True(t, report.Changed())

	assert.ElementsMatch(t, []chunk.Coord{c(0, 0), c(2, 0)}, collect(t, reopened))
	moved, err := reopened.ReadChunk(ctx, c(2, 0))
	require.NoError(t, err)
	assert.Equal(t, byte(2), moved.Block(3, 10, 4))

	// A clean region is left alone.
	again, err := rf.Repair(ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed())
	assert.Zero(t, again.Reclaimed)
	assert.Equal(t, 2, again.Kept)
}

func TestRegionRepair_DuplicateMisplacedChunk(t *testing.T) {
	ctx := context.Background()
	dir, dim := newWorld(t, Meta{Name: "survival", FormatVersion: 1})
	require.NoError(t, dim.Close())

	writeRegion(t, dir, chunk.RegionPos{}, map[int]rawChunk{
		5: encoded(t, sampleChunk(c(0, 0), 5)),
		6: encoded(t, sampleChunk(c(0, 0), 6)),
	})

	reopened := reopen(t, dir, OpenOptions{})
	require.NoError(t, reopened.PreloadRegions(ctx))

	report, err := reopened.RegionFiles()[chunk.RegionPos{}].Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Kept)
	assert.Equal(t, 1, report.Relocated)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 2, report.Kept+report.Relocated+report.Dropped)

	// the lowest slot wins
	assert.Equal(t, []chunk.Coord{c(0, 0)}, collect(t, reopened))
	got, err := reopened.ReadChunk(ctx, c(0, 0))
	require.NoError(t, err)
	assert.Equal(t, byte(5), got.Block(3, 10, 4))
}

func TestShortRegionFile(t *testing.T) {
	ctx := context.Background()
	dir, dim := newWorld(t, Meta{Name: "survival", FormatVersion: 1})
	require.NoError(t, dim.Close())

	path := filepath.Join(dir, "region", "r.0.0.mcr")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	reopened := reopen(t, dir, OpenOptions{})
	assert.Empty(t, collect(t, reopened))

	require.NoError(t, reopened.PreloadRegions(ctx))
	report, err := reopened.RegionFiles()[chunk.RegionPos{}].Repair(ctx)
	require.NoError(t, err)
	assert.False(t, report.Changed())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(headerSize), info.Size())
}

func TestOpen(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope"), OpenOptions{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NoLevelFile", func(t *testing.T) {
		_, err := Open(t.TempDir(), OpenOptions{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SavesDirFallback", func(t *testing.T) {
		saves := t.TempDir()
		_, err := Create(filepath.Join(saves, "survival"), Meta{Name: "Survival"})
		require.NoError(t, err)

		level, err := Open("survival", OpenOptions{SavesDir: saves})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(saves, "survival"), level.Path())
		assert.Equal(t, "Survival", level.Meta().Name)
		assert.Equal(t, "zlib", level.Meta().Compression)
	})

	t.Run("UnknownCompression", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, LevelFile), []byte("name: x\ncompression: lz4\n"), 0o644))
		_, err := Open(dir, OpenOptions{})
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("BadYAML", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, LevelFile), []byte("name: [\n"), 0o644))
		_, err := Open(dir, OpenOptions{})
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("Dimensions", func(t *testing.T) {
		dir := t.TempDir()
		level, err := Create(dir, Meta{Name: "x"})
		require.NoError(t, err)

		_, err = level.Dimension(Nether)
		assert.ErrorIs(t, err, ErrInvalidDimension)

		require.NoError(t, os.MkdirAll(filepath.Join(dir, "DIM-1"), 0o755))
		nether, err := level.Dimension(Nether)
		require.NoError(t, err)
		assert.Equal(t, Nether, nether.Selector())
		assert.Equal(t, dir+" [nether]", nether.Name())

		_, err = OpenDimension(dir, End, OpenOptions{})
		assert.ErrorIs(t, err, ErrInvalidDimension)
	})
}

func TestSelector(t *testing.T) {
	assert.Equal(t, ".", Overworld.Dir())
	assert.Equal(t, "DIM-1", Nether.Dir())
	assert.Equal(t, "DIM1", End.Dir())
	assert.Equal(t, filepath.Join("DIM1", "region"), End.RegionDir())
	assert.Equal(t, "end", End.String())
	assert.Equal(t, "dim7", Selector(7).String())
}

func TestParseRegionFileName(t *testing.T) {
	tests := []struct {
		name string
		pos  chunk.RegionPos
		ok   bool
	}{
		{"r.0.0.mcr", chunk.RegionPos{}, true},
		{"r.-1.2.mcr", chunk.RegionPos{X: -1, Z: 2}, true},
		{"r.1.mcr", chunk.RegionPos{}, false},
		{"r.a.b.mcr", chunk.RegionPos{}, false},
		{"r.0.0.mca", chunk.RegionPos{}, false},
		{"level.yaml", chunk.RegionPos{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, ok := parseRegionFileName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.pos, pos)
		})
	}
	assert.Equal(t, "r.-1.2.mcr", regionFileName(chunk.RegionPos{X: -1, Z: 2}))
}
