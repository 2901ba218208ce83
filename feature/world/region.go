package world

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"chunk-mender/core/chunk"
)

const (
	sectorSize     = 4096
	headerSectors  = 2
	headerSize     = headerSectors * sectorSize
	maxSectorCount = 0xff
	recordHeader   = 5 // uint32 length + compression byte
	regionExt      = ".mcr"
)

// rawChunk is a stored chunk record before decompression.
type rawChunk struct {
	compression Compression
	payload     []byte
	timestamp   uint32
}

// regionFile is one r.X.Z.mcr file. Reads are safe for concurrent use.
type regionFile struct {
	path string
	pos  chunk.RegionPos

	mu         sync.RWMutex
	f          *os.File
	size       int64
	locations  [chunk.RegionSlots]uint32
	timestamps [chunk.RegionSlots]uint32
}

func regionFileName(pos chunk.RegionPos) string {
	return fmt.Sprintf("r.%d.%d%s", pos.X, pos.Z, regionExt)
}

func parseRegionFileName(name string) (chunk.RegionPos, bool) {
	if !strings.HasPrefix(name, "r.") || !strings.HasSuffix(name, regionExt) {
		return chunk.RegionPos{}, false
	}
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(name, "r."), regionExt), ".")
	if len(parts) != 2 {
		return chunk.RegionPos{}, false
	}
	x, errX := strconv.ParseInt(parts[0], 10, 32)
	z, errZ := strconv.ParseInt(parts[1], 10, 32)
	if errX != nil || errZ != nil {
		return chunk.RegionPos{}, false
	}
	return chunk.RegionPos{X: int32(x), Z: int32(z)}, true
}

func openRegion(path string, pos chunk.RegionPos) (*regionFile, error) {
	r := &regionFile{path: path, pos: pos}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// reload (re)opens the file and reads its header. A file shorter than the
// header is treated as holding no chunks.
func (r *regionFile) reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f != nil {
		r.f.Close()
		r.f = nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open region %s: %w", r.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat region %s: %w", r.path, err)
	}

	r.f = f
	r.size = info.Size()
	clear(r.locations[:])
	clear(r.timestamps[:])

	if r.size < headerSize {
		return nil
	}

	header := make([]byte, headerSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return fmt.Errorf("failed to read region header %s: %w", r.path, err)
	}
	for i := 0; i < chunk.RegionSlots; i++ {
		r.locations[i] = binary.BigEndian.Uint32(header[i*4:])
		r.timestamps[i] = binary.BigEndian.Uint32(header[sectorSize+i*4:])
	}
	return nil
}

func (r *regionFile) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// Path returns the file location.
func (r *regionFile) Path() string {
	return r.path
}

// coords returns the chunks the header references.
func (r *regionFile) coords() []chunk.Coord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var coords []chunk.Coord
	for slot, loc := range r.locations {
		if loc != 0 {
			coords = append(coords, r.pos.Chunk(slot))
		}
	}
	return coords
}

func (r *regionFile) has(slot int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locations[slot] != 0
}

// readRaw returns the stored record for slot. Structural problems wrap
// ErrMalformedChunk; other errors are I/O failures.
func (r *regionFile) readRaw(slot int) (rawChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loc := r.locations[slot]
	if loc == 0 {
		return rawChunk{}, ErrChunkNotPresent
	}
	if r.f == nil {
		return rawChunk{}, fmt.Errorf("region %s is closed", r.path)
	}

	offset := int64(loc >> 8)
	count := int64(loc & 0xff)
	switch {
	case offset < headerSectors:
		return rawChunk{}, fmt.Errorf("%w: sector offset %d points into the header", ErrMalformedChunk, offset)
	case count == 0:
		return rawChunk{}, fmt.Errorf("%w: zero sector count", ErrMalformedChunk)
	case offset*sectorSize+recordHeader > r.size:
		return rawChunk{}, fmt.Errorf("%w: sector offset %d is past the end of the file", ErrMalformedChunk, offset)
	}

	var hdr [recordHeader]byte
	if _, err := r.f.ReadAt(hdr[:], offset*sectorSize); err != nil {
		return rawChunk{}, readError(err)
	}
	length := int64(binary.BigEndian.Uint32(hdr[:4]))
	if length < 1 || length+4 > count*sectorSize {
		return rawChunk{}, fmt.Errorf("%w: record length %d does not fit %d sectors", ErrMalformedChunk, length, count)
	}

	payload := make([]byte, length-1)
	if _, err := r.f.ReadAt(payload, offset*sectorSize+recordHeader); err != nil {
		return rawChunk{}, readError(err)
	}

	return rawChunk{
		compression: Compression(hdr[4]),
		payload:     payload,
		timestamp:   r.timestamps[slot],
	}, nil
}

func readError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated record", ErrMalformedChunk)
	}
	return err
}

// records returns every structurally readable record. Unreadable entries are
// skipped; I/O failures are returned.
func (r *regionFile) records() (map[int]rawChunk, error) {
	records := make(map[int]rawChunk)
	for slot := 0; slot < chunk.RegionSlots; slot++ {
		if !r.has(slot) {
			continue
		}
		raw, err := r.readRaw(slot)
		if errors.Is(err, ErrMalformedChunk) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records[slot] = raw
	}
	return records, nil
}

// rewrite replaces the file with a compacted one holding records and reloads
// the header. It returns the previous file size.
func (r *regionFile) rewrite(records map[int]rawChunk) (int64, error) {
	r.mu.RLock()
	oldSize := r.size
	r.mu.RUnlock()

	data, err := encodeRegion(records)
	if err != nil {
		return oldSize, fmt.Errorf("failed to encode region %s: %w", r.path, err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		return oldSize, err
	}
	return oldSize, r.reload()
}

// encodeRegion lays records out sequentially after the header, in slot order.
func encodeRegion(records map[int]rawChunk) ([]byte, error) {
	header := make([]byte, headerSize)
	var body bytes.Buffer

	slots := make([]int, 0, len(records))
	for slot := range records {
		slots = append(slots, slot)
	}
	slices.Sort(slots)

	sector := headerSectors
	for _, slot := range slots {
		rec := records[slot]
		size := recordHeader + len(rec.payload)
		sectors := (size + sectorSize - 1) / sectorSize
		if sectors > maxSectorCount {
			return nil, fmt.Errorf("chunk in slot %d needs %d sectors", slot, sectors)
		}

		binary.BigEndian.PutUint32(header[slot*4:], uint32(sector)<<8|uint32(sectors))
		binary.BigEndian.PutUint32(header[sectorSize+slot*4:], rec.timestamp)

		var hdr [recordHeader]byte
		binary.BigEndian.PutUint32(hdr[:4], uint32(len(rec.payload)+1))
		hdr[4] = byte(rec.compression)
		body.Write(hdr[:])
		body.Write(rec.payload)
		body.Write(make([]byte, sectors*sectorSize-size))

		sector += sectors
	}

	return append(header, body.Bytes()...), nil
}

// listRegions returns the region files present in dir.
func listRegions(dir string) (map[chunk.RegionPos]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list regions in %s: %w", dir, err)
	}

	found := make(map[chunk.RegionPos]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pos, ok := parseRegionFileName(e.Name()); ok {
			found[pos] = filepath.Join(dir, e.Name())
		}
	}
	return found, nil
}
