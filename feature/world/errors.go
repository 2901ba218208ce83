package world

import "errors"

var (
	// ErrNotFound is returned when a world path does not exist.
	ErrNotFound = errors.New("world not found")

	// ErrFormat is returned when level metadata cannot be parsed.
	ErrFormat = errors.New("unrecognized world format")

	// ErrInvalidDimension is returned when the selected dimension does not exist.
	ErrInvalidDimension = errors.New("dimension does not exist")

	// ErrReadOnly is returned by mutations on a read-only world.
	ErrReadOnly = errors.New("world is read-only")

	// ErrMalformedChunk wraps every chunk decode failure.
	ErrMalformedChunk = errors.New("malformed chunk")

	// ErrChunkNotPresent is returned when reading a chunk the dimension does not hold.
	ErrChunkNotPresent = errors.New("chunk not present")
)
