package world

import (
	"fmt"

	"chunk-mender/core/chunk"
)

const (
	blockCount  = chunk.Size * chunk.Size * chunk.Height
	columnCount = chunk.Size * chunk.Size
	maxLight    = 15
)

// Data is the decoded voxel content of one chunk.
// Blocks are indexed x-major, then z, then y.
type Data struct {
	Coord          chunk.Coord
	Blocks         []byte
	SkyLight       []byte // one nibble per block
	HeightMap      []byte // one byte per column
	LightPopulated bool
}

// NewData returns an empty (all air) chunk.
func NewData(coord chunk.Coord) *Data {
	return &Data{
		Coord:     coord,
		Blocks:    make([]byte, blockCount),
		SkyLight:  make([]byte, blockCount/2),
		HeightMap: make([]byte, columnCount),
	}
}

func blockIndex(x, y, z int) int {
	return (x*chunk.Size+z)*chunk.Height + y
}

// Block returns the block id at chunk-local coordinates.
func (d *Data) Block(x, y, z int) byte {
	return d.Blocks[blockIndex(x, y, z)]
}

// SetBlock sets the block id at chunk-local coordinates.
func (d *Data) SetBlock(x, y, z int, id byte) {
	d.Blocks[blockIndex(x, y, z)] = id
	d.LightPopulated = false
}

// SkyLightAt returns the sky light level at chunk-local coordinates.
func (d *Data) SkyLightAt(x, y, z int) byte {
	i := blockIndex(x, y, z)
	b := d.SkyLight[i>>1]
	if i&1 == 0 {
		return b & 0x0f
	}
	return b >> 4
}

func (d *Data) setSkyLight(i int, v byte) {
	b := d.SkyLight[i>>1]
	if i&1 == 0 {
		b = b&0xf0 | v&0x0f
	} else {
		b = b&0x0f | v<<4
	}
	d.SkyLight[i>>1] = b
}

// Clone returns a deep copy of d placed at coord.
func (d *Data) Clone(coord chunk.Coord) *Data {
	return &Data{
		Coord:          coord,
		Blocks:         append([]byte(nil), d.Blocks...),
		SkyLight:       append([]byte(nil), d.SkyLight...),
		HeightMap:      append([]byte(nil), d.HeightMap...),
		LightPopulated: d.LightPopulated,
	}
}

func (d *Data) validate() error {
	if len(d.Blocks) != blockCount {
		return fmt.Errorf("blocks: got %d bytes, want %d", len(d.Blocks), blockCount)
	}
	if len(d.SkyLight) != blockCount/2 {
		return fmt.Errorf("sky_light: got %d bytes, want %d", len(d.SkyLight), blockCount/2)
	}
	if len(d.HeightMap) != columnCount {
		return fmt.Errorf("height_map: got %d bytes, want %d", len(d.HeightMap), columnCount)
	}
	return nil
}

// relight recomputes the height map and column sky light: full light above the
// highest non-air block of each column, none below it.
func (d *Data) relight() {
	for x := 0; x < chunk.Size; x++ {
		for z := 0; z < chunk.Size; z++ {
			top := 0
			for y := chunk.Height - 1; y >= 0; y-- {
				if d.Block(x, y, z) != 0 {
					top = y + 1
					break
				}
			}
			d.HeightMap[z*chunk.Size+x] = byte(min(top, 255))
			for y := 0; y < chunk.Height; y++ {
				level := byte(0)
				if y >= top {
					level = maxLight
				}
				d.setSkyLight(blockIndex(x, y, z), level)
			}
		}
	}
	d.LightPopulated = true
}
