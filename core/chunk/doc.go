// Package chunk defines the value types shared by every layer of the repair tool:
// chunk coordinates, the voxel bounding box a chunk occupies, region positions and
// the tagged outcome of loading a chunk.
//
// A chunk is a 16 x Height x 16 column of voxels addressed by a 2-D coordinate.
// Chunks are grouped 32 x 32 into region files.
package chunk
