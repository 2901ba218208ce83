// Package world implements the on-disk world store repaired by chunk-mender.
//
// # Layout
//
//	WORLD/level.yaml          level metadata (name, format_version, compression)
//	WORLD/region/r.X.Z.mcr    overworld region files
//	WORLD/DIM-1/region/...    nether
//	WORLD/DIM1/region/...     end
//
// # Region files
//
// A region file holds up to 32x32 chunks. It starts with a 4 KiB location table
// (1024 big-endian uint32: 24-bit sector offset, 8-bit sector count) and a 4 KiB
// timestamp table, followed by 4 KiB sectors. Each stored chunk is a uint32
// length, one compression byte (1 gzip, 2 zlib, 3 none, 4 zstd) and the payload.
//
// # Chunks
//
// The decompressed payload is a JSON document validated against an embedded
// JSON Schema. Anything that fails decompression, parsing, schema validation,
// size checks or coordinate checks is reported as a malformed chunk.
//
// # Mutations
//
// Deletes, copies and relighting are kept in memory. SaveInPlace rewrites only
// the region files they touch, each through a temporary file and a rename, so
// closing a dimension without saving leaves the disk untouched.
package world
