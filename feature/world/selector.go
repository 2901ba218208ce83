package world

import (
	"fmt"
	"path/filepath"
)

// Selector picks a dimension inside a world.
type Selector int

const (
	// Overworld is the default dimension stored at the world root.
	Overworld Selector = 0
	// Nether is stored in DIM-1.
	Nether Selector = -1
	// End is stored in DIM1.
	End Selector = 1
)

// Dir returns the dimension directory relative to the world root.
func (s Selector) Dir() string {
	if s == Overworld {
		return "."
	}
	return fmt.Sprintf("DIM%d", int(s))
}

// RegionDir returns the region directory relative to the world root.
func (s Selector) RegionDir() string {
	return filepath.Join(s.Dir(), "region")
}

func (s Selector) String() string {
	switch s {
	case Overworld:
		return "overworld"
	case Nether:
		return "nether"
	case End:
		return "end"
	default:
		return fmt.Sprintf("dim%d", int(s))
	}
}
