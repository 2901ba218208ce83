package repair

// State is a step of the repair session.
type State int

const (
	// Scanning runs the reconciliation pass.
	Scanning State = iota
	// AwaitingConfirmation waits for the operator to allow deleting unrecoverable chunks.
	AwaitingConfirmation
	// Persisting relights and saves the primary.
	Persisting
	// Repairing fixes region file structure.
	Repairing
	// Done means the session completed and the primary is closed.
	Done
	// Aborted means the operator declined; nothing was saved.
	Aborted
)

var stateNames = [...]string{
	Scanning:             "scanning",
	AwaitingConfirmation: "awaiting-confirmation",
	Persisting:           "persisting",
	Repairing:            "repairing",
	Done:                 "done",
	Aborted:              "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the session ends in s.
func (s State) Terminal() bool {
	return s == Done || s == Aborted
}
