package chunk

// Status is the outcome of loading a chunk.
type Status int

const (
	// Loaded means the chunk decoded without structural error.
	Loaded Status = iota
	// Malformed means the stored bytes could not be decoded into voxel data.
	Malformed
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Load is the tagged result of loading a chunk from a store.
// Decode failures are reported here rather than as errors; errors returned
// alongside a Load are reserved for I/O failures.
type Load struct {
	Status Status
	// Reason describes why the chunk is malformed. Nil when loaded.
	Reason error
}

// OK reports whether the chunk loaded.
func (l Load) OK() bool {
	return l.Status == Loaded
}

// LoadedChunk returns a successful load outcome.
func LoadedChunk() Load {
	return Load{Status: Loaded}
}

// MalformedChunk returns a failed load outcome carrying the decode error.
func MalformedChunk(reason error) Load {
	return Load{Status: Malformed, Reason: reason}
}
