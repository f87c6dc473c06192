package events

import "time"

// FileIngested is emitted when one file's pipeline reaches its terminal
// state with records persisted and indexed.
type FileIngested struct {
	Path      string        // final storage location
	Checksum  string        // SHA-256 of the source bytes
	Records   int           // records persisted for this file
	Duration  time.Duration // detection to index
	Timestamp time.Time
}

// DuplicateDiscarded is emitted when an intake file matched an already
// stored file and was deleted without processing.
type DuplicateDiscarded struct {
	Path      string // intake path of the discarded copy
	Checksum  string
	Timestamp time.Time
}

// ArchiveExpanded is emitted once all members of a zip drop have been
// dispatched.
type ArchiveExpanded struct {
	Path      string // stored archive path
	Members   int    // eligible member files
	Timestamp time.Time
}
