package reconcile

import (
	"cmp"
	"slices"

	"chunk-mender/core/chunk"
)

// Classification holds the validity state of a repair session.
// A coordinate is in at most one of the valid and damaged sets; a coordinate in
// neither is unknown (never seen loadable anywhere). Once valid, a coordinate
// never becomes damaged again.
type Classification struct {
	valid   map[chunk.Coord]struct{}
	damaged map[chunk.Coord]struct{}
}

// NewClassification returns an empty classification.
func NewClassification() *Classification {
	return &Classification{
		valid:   make(map[chunk.Coord]struct{}),
		damaged: make(map[chunk.Coord]struct{}),
	}
}

// MarkValid records c as loadable. It returns true if c was damaged before.
func (c *Classification) MarkValid(coord chunk.Coord) (wasDamaged bool) {
	_, wasDamaged = c.damaged[coord]
	delete(c.damaged, coord)
	c.valid[coord] = struct{}{}
	return wasDamaged
}

// MarkDamaged records c as malformed in the primary store.
// It is a no-op returning false when c is already valid.
func (c *Classification) MarkDamaged(coord chunk.Coord) bool {
	if _, ok := c.valid[coord]; ok {
		return false
	}
	c.damaged[coord] = struct{}{}
	return true
}

// IsValid reports whether coord is in the valid set.
func (c *Classification) IsValid(coord chunk.Coord) bool {
	_, ok := c.valid[coord]
	return ok
}

// IsDamaged reports whether coord is in the damaged set.
func (c *Classification) IsDamaged(coord chunk.Coord) bool {
	_, ok := c.damaged[coord]
	return ok
}

// ValidCount returns the size of the valid set.
func (c *Classification) ValidCount() int {
	return len(c.valid)
}

// DamagedCount returns the size of the damaged set.
func (c *Classification) DamagedCount() int {
	return len(c.damaged)
}

// Valid returns the valid set sorted by Z then X.
func (c *Classification) Valid() []chunk.Coord {
	return sortedCoords(c.valid)
}

// Damaged returns the damaged set sorted by Z then X.
func (c *Classification) Damaged() []chunk.Coord {
	return sortedCoords(c.damaged)
}

// ClearDamaged empties the damaged set.
func (c *Classification) ClearDamaged() {
	clear(c.damaged)
}

func sortedCoords(set map[chunk.Coord]struct{}) []chunk.Coord {
	coords := make([]chunk.Coord, 0, len(set))
	for coord := range set {
		coords = append(coords, coord)
	}
	slices.SortFunc(coords, func(a, b chunk.Coord) int {
		if n := cmp.Compare(a.Z, b.Z); n != 0 {
			return n
		}
		return cmp.Compare(a.X, b.X)
	})
	return coords
}

// EventKind names a reconciliation event.
type EventKind string

const (
	// EventMalformed is emitted when a primary chunk fails to decode.
	EventMalformed EventKind = "malformed"
	// EventRepaired is emitted when a damaged chunk is replaced from a backup.
	EventRepaired EventKind = "repaired-from-backup"
	// EventRestored is emitted when a chunk missing from the primary is copied from a backup.
	EventRestored EventKind = "restored-missing"
	// EventDamagedInBackup is emitted when a backup chunk fails to decode.
	EventDamagedInBackup EventKind = "damaged-in-backup"
	// EventUnrecoverable is emitted for damaged chunks no backup could replace.
	EventUnrecoverable EventKind = "unrecoverable"
	// EventDeleted is emitted when an unrecoverable chunk is deleted after confirmation.
	EventDeleted EventKind = "deleted"
)

// Event describes something that happened to one chunk during a session.
type Event struct {
	// Kind is the event type.
	Kind EventKind `json:"kind"`

	// Coord is the chunk coordinate.
	Coord chunk.Coord `json:"coord"`

	// Box is the chunk's bounding region.
	Box chunk.Box `json:"box"`

	// Source names the store the event was observed in.
	Source string `json:"source"`

	// Reason carries the decode error for malformed events.
	Reason error `json:"-"`
}

func newEvent(kind EventKind, coord chunk.Coord, source string, reason error) Event {
	return Event{
		Kind:   kind,
		Coord:  coord,
		Box:    coord.Box(),
		Source: source,
		Reason: reason,
	}
}

// Summary provides aggregate counts for a reconciliation run.
type Summary struct {
	// PrimaryChunks is the number of chunks enumerated in the primary.
	PrimaryChunks int `json:"primary_chunks"`

	// Malformed counts primary chunks that failed to decode.
	Malformed int `json:"malformed"`

	// Repaired counts damaged chunks replaced from a backup.
	Repaired int `json:"repaired"`

	// Restored counts missing chunks copied from a backup.
	Restored int `json:"restored"`

	// DamagedInBackup counts backup chunks that failed to decode.
	DamagedInBackup int `json:"damaged_in_backup"`

	// Unrecoverable counts damaged chunks left after all backups.
	Unrecoverable int `json:"unrecoverable"`

	// BackupsScanned is the number of backups fully scanned.
	BackupsScanned int `json:"backups_scanned"`
}

// Options controls engine behavior.
type Options struct {
	// Workers bounds concurrent chunk loads. Values below 1 mean 1.
	Workers int
}
