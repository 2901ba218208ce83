// Package repair sequences a full world repair session on top of the
// reconciliation engine.
//
// # States
//
//	Scanning -> [AwaitingConfirmation] -> Persisting -> [Repairing] -> Done
//	                     |
//	                     +-> Aborted
//
// Scanning runs the reconciliation pass. If damaged chunks remain, every one of
// them is reported and a Confirmer is asked whether to delete them. Any answer
// other than yes aborts: the primary is closed without saving, so nothing the
// session did in memory reaches disk.
//
// Persisting regenerates lighting and saves. Repairing, only for stores with
// region files, fixes region headers and offsets file by file; the store is then
// saved a second time and closed. Failures while persisting or repairing are
// returned to the caller; nothing is retried or rolled back.
package repair
