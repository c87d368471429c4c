package deletion

import "time"

// Result describes one completed cascade run. It is built fresh per
// invocation, written to the audit log, returned to the caller, and then
// discarded.
type Result struct {
	Success           bool
	TablesProcessed   []string
	RecordsDeleted    int
	RecordsAnonymized int
	FilesDeleted      []string
	Duration          time.Duration
	ErrorMessage      string
}

// Initiator records who triggered a deletion relative to its target.
type Initiator string

const (
	InitiatorSelf  Initiator = "self"
	InitiatorAdmin Initiator = "admin"
)
