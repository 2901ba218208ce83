package chunk_test

import (
	"errors"
	"testing"

	"chunk-mender/core/chunk"

	"github.com/stretchr/testify/assert"
)

func TestCoord_Box(t *testing.T) {
	tests := []struct {
		name   string
		coord  chunk.Coord
		origin chunk.Point
	}{
		{"Origin", chunk.Coord{X: 0, Z: 0}, chunk.Point{X: 0, Y: 0, Z: 0}},
		{"Positive", chunk.Coord{X: 1, Z: 2}, chunk.Point{X: 16, Y: 0, Z: 32}},
		{"Negative", chunk.Coord{X: -1, Z: -3}, chunk.Point{X: -16, Y: 0, Z: -48}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := tt.coord.Box()
			assert.Equal(t, tt.origin, box.Origin)
			assert.Equal(t, chunk.Point{X: 16, Y: chunk.Height, Z: 16}, box.Size)
			assert.Equal(t, []chunk.Coord{tt.coord}, box.Chunks())
		})
	}
}

func TestCoord_RegionAndSlot(t *testing.T) {
	tests := []struct {
		coord  chunk.Coord
		region chunk.RegionPos
		slot   int
	}{
		{chunk.Coord{X: 0, Z: 0}, chunk.RegionPos{X: 0, Z: 0}, 0},
		{chunk.Coord{X: 31, Z: 1}, chunk.RegionPos{X: 0, Z: 0}, 63},
		{chunk.Coord{X: 32, Z: 0}, chunk.RegionPos{X: 1, Z: 0}, 0},
		{chunk.Coord{X: -1, Z: -1}, chunk.RegionPos{X: -1, Z: -1}, 1023},
		{chunk.Coord{X: -33, Z: 5}, chunk.RegionPos{X: -2, Z: 0}, 31 + 5*32},
	}

	for _, tt := range tests {
		t.Run(tt.coord.String(), func(t *testing.T) {
			assert.Equal(t, tt.region, tt.coord.Region())
			assert.Equal(t, tt.slot, tt.coord.Local())
			assert.Equal(t, tt.coord, tt.region.Chunk(tt.slot))
		})
	}
}

func TestBox_ChunksSpanning(t *testing.T) {
	box := chunk.Box{Origin: chunk.Point{X: -8, Y: 0, Z: 8}, Size: chunk.Point{X: 25, Y: 4, Z: 16}}
	assert.ElementsMatch(t, []chunk.Coord{
		{X: -1, Z: 0}, {X: 0, Z: 0}, {X: 1, Z: 0},
		{X: -1, Z: 1}, {X: 0, Z: 1}, {X: 1, Z: 1},
	}, box.Chunks())

	assert.Nil(t, chunk.Box{}.Chunks())
}

func TestBox_IntersectAndContains(t *testing.T) {
	a := chunk.Coord{X: 0, Z: 0}.Box()
	b := chunk.Box{Origin: chunk.Point{X: 8, Y: 100, Z: -4}, Size: chunk.Point{X: 16, Y: 64, Z: 8}}

	got := a.Intersect(b)
	assert.Equal(t, chunk.Point{X: 8, Y: 100, Z: 0}, got.Origin)
	assert.Equal(t, chunk.Point{X: 8, Y: 28, Z: 4}, got.Size)
	assert.True(t, got.Contains(chunk.Point{X: 15, Y: 127, Z: 3}))
	assert.False(t, got.Contains(chunk.Point{X: 16, Y: 127, Z: 3}))

	far := chunk.Coord{X: 5, Z: 5}.Box()
	assert.True(t, a.Intersect(far).Empty())
}

func TestLoad(t *testing.T) {
	assert.True(t, chunk.LoadedChunk().OK())

	reason := errors.New("bad payload")
	l := chunk.MalformedChunk(reason)
	assert.False(t, l.OK())
	assert.Equal(t, chunk.Malformed, l.Status)
	assert.ErrorIs(t, l.Reason, reason)
	assert.Equal(t, "malformed", l.Status.String())
}
