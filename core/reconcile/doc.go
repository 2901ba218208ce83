// Package reconcile implements multi-source chunk reconciliation: it decides
// which chunks of a primary world store are valid, damaged or missing, and
// converges the primary toward full validity using an ordered list of backups.
//
// # Algorithm
//
// 1. Primary scan: every chunk the primary enumerates is loaded. Chunks that
//    decode go to the valid set; chunks that fail to decode go to the damaged set.
//
// 2. Purge: damaged chunks are deleted from the primary before any backup is read,
//    so a recovered copy never collides with corrupt residual data.
//
// 3. Backup scan: backups are consulted strictly in order. A coordinate already
//    valid is never overwritten, so the first backup holding a good copy wins.
//    Good copies are written to the primary; bad copies only produce a diagnostic.
//
// After the pass the damaged set contains exactly the chunks no backup could
// replace. Deciding what to do with them is left to the caller (see core/repair).
//
// # Concurrency
//
// Chunk loads are read-only and run on a bounded errgroup. Their outcomes are
// buffered and applied in enumeration order from a single goroutine, so every
// mutation of the primary is serialized. Backups are scanned one after another.
//
// # Store contract
//
// The engine talks to worlds only through the Store interface. feature/world
// provides the on-disk implementation; reconciletest provides an in-memory one
// for tests.
package reconcile
