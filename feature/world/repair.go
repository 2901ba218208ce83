package world

import (
	"context"
	"errors"
	"fmt"

	"chunk-mender/core/reconcile"
)

// Repair rebuilds the region file from its readable entries. Entries with bad
// offsets, bad lengths, overlapping sectors or undecodable payloads are
// dropped. Chunks stored in the wrong slot are moved to their own slot when
// it is free; of several misplaced copies only the lowest slot is kept. The file is rewritten when anything changed, when it holds
// unused sectors, or when it is shorter than the header.
func (r *regionFile) Repair(ctx context.Context) (reconcile.RegionRepair, error) {
	report := reconcile.RegionRepair{Region: r.pos}

	r.mu.RLock()
	oldSize := r.size
	locations := r.locations
	r.mu.RUnlock()

	fileSectors := int((oldSize + sectorSize - 1) / sectorSize)
	used := make([]bool, max(fileSectors, headerSectors))
	for i := 0; i < headerSectors; i++ {
		used[i] = true
	}

	kept := make(map[int]rawChunk)
	lost := make(map[int]rawChunk)

	for slot, loc := range locations {
		if loc == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		offset, count := int(loc>>8), int(loc&0xff)
		if offset < headerSectors || count == 0 || offset+count > fileSectors || overlaps(used, offset, count) {
			report.Dropped++
			continue
		}
		for i := offset; i < offset+count; i++ {
			used[i] = true
		}

		raw, err := r.readRaw(slot)
		if errors.Is(err, ErrMalformedChunk) {
			report.Dropped++
			continue
		}
		if err != nil {
			return report, err
		}

		data, err := decodeChunk(raw.compression, raw.payload)
		if err != nil || data.Coord.Region() != r.pos {
			report.Dropped++
			continue
		}

		if own := data.Coord.Local(); own != slot {
			if _, dup := lost[own]; dup {
				report.Dropped++
				continue
			}
			lost[own] = raw
			continue
		}
		kept[slot] = raw
	}

	report.Kept = len(kept)
	for slot, raw := range lost {
		if _, taken := kept[slot]; taken {
			report.Dropped++
			continue
		}
		kept[slot] = raw
		report.Relocated++
	}

	encoded, err := encodeRegion(kept)
	if err != nil {
		return report, fmt.Errorf("failed to encode region %s: %w", r.path, err)
	}
	compacted := int64(len(encoded)) < oldSize
	if !report.Changed() && !compacted && oldSize >= headerSize {
		return report, nil
	}
	if err := writeFileAtomic(r.path, encoded); err != nil {
		return report, err
	}
	if err := r.reload(); err != nil {
		return report, err
	}
	report.Reclaimed = max(oldSize-int64(len(encoded)), 0)
	return report, nil
}

func overlaps(used []bool, offset, count int) bool {
	for i := offset; i < offset+count; i++ {
		if used[i] {
			return true
		}
	}
	return false
}

var _ reconcile.RegionFile = (*regionFile)(nil)
