package chunk

import "fmt"

const (
	// Size is the horizontal edge length of a chunk in voxels.
	Size = 16
	// Height is the fixed world height in voxels.
	Height = 128
	// RegionSize is the number of chunks along one edge of a region file.
	RegionSize = 32
	// RegionSlots is the number of chunk slots in a region file.
	RegionSlots = RegionSize * RegionSize
)

// Coord identifies a chunk on the horizontal grid.
type Coord struct {
	X int32 `json:"x"`
	Z int32 `json:"z"`
}

// Box returns the voxel bounding region the chunk occupies.
func (c Coord) Box() Box {
	return Box{
		Origin: Point{X: int(c.X) << 4, Y: 0, Z: int(c.Z) << 4},
		Size:   Point{X: Size, Y: Height, Z: Size},
	}
}

// Region returns the position of the region file holding the chunk.
func (c Coord) Region() RegionPos {
	return RegionPos{X: c.X >> 5, Z: c.Z >> 5}
}

// Local returns the slot index of the chunk inside its region file.
func (c Coord) Local() int {
	return int(c.X&(RegionSize-1)) + int(c.Z&(RegionSize-1))*RegionSize
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// RegionPos identifies a region file.
type RegionPos struct {
	X int32
	Z int32
}

// Chunk returns the coordinate of the chunk stored in the given slot.
func (r RegionPos) Chunk(slot int) Coord {
	return Coord{
		X: r.X*RegionSize + int32(slot%RegionSize),
		Z: r.Z*RegionSize + int32(slot/RegionSize),
	}
}

func (r RegionPos) String() string {
	return fmt.Sprintf("r.%d.%d", r.X, r.Z)
}
