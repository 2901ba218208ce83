package chunk

import "fmt"

// Point is a voxel position or extent.
type Point struct {
	X, Y, Z int
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Sub returns p translated by -q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Box is an axis-aligned voxel box. Max is exclusive.
type Box struct {
	Origin Point
	Size   Point
}

// Max returns the exclusive upper corner of the box.
func (b Box) Max() Point {
	return b.Origin.Add(b.Size)
}

// Empty reports whether the box contains no voxels.
func (b Box) Empty() bool {
	return b.Size.X <= 0 || b.Size.Y <= 0 || b.Size.Z <= 0
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	m := b.Max()
	return p.X >= b.Origin.X && p.X < m.X &&
		p.Y >= b.Origin.Y && p.Y < m.Y &&
		p.Z >= b.Origin.Z && p.Z < m.Z
}

// Intersect returns the overlap of two boxes. The result may be empty.
func (b Box) Intersect(o Box) Box {
	bm, om := b.Max(), o.Max()
	lo := Point{X: max(b.Origin.X, o.Origin.X), Y: max(b.Origin.Y, o.Origin.Y), Z: max(b.Origin.Z, o.Origin.Z)}
	hi := Point{X: min(bm.X, om.X), Y: min(bm.Y, om.Y), Z: min(bm.Z, om.Z)}
	return Box{Origin: lo, Size: hi.Sub(lo)}
}

// Chunks returns every chunk coordinate whose column the box touches.
func (b Box) Chunks() []Coord {
	if b.Empty() {
		return nil
	}
	m := b.Max()
	x0, z0 := b.Origin.X>>4, b.Origin.Z>>4
	x1, z1 := (m.X-1)>>4, (m.Z-1)>>4

	coords := make([]Coord, 0, (x1-x0+1)*(z1-z0+1))
	for z := z0; z <= z1; z++ {
		for x := x0; x <= x1; x++ {
			coords = append(coords, Coord{X: int32(x), Z: int32(z)})
		}
	}
	return coords
}

func (b Box) String() string {
	return fmt.Sprintf("x=%d,y=%d,z=%d size=%dx%dx%d",
		b.Origin.X, b.Origin.Y, b.Origin.Z, b.Size.X, b.Size.Y, b.Size.Z)
}
