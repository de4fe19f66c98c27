// Package importproblems models the per-root log of rejected records
// produced by a pass of the import orchestrator.
package importproblems

import "time"

// ImportProblem records one rejected raw record from a given root's
// import pass (spec §3, §7 taxonomy items 1-3).
type ImportProblem struct {
	ID           int
	RootServerID int
	Message      string // truncated to 255 chars
	Timestamp    time.Time
	RawRecord    string
}

const maxMessageLen = 255

// New builds an ImportProblem, truncating the message to the column
// limit the way the store would reject an overlong one.
func New(rootServerID int, message, rawRecord string) ImportProblem {
	if len(message) > maxMessageLen {
		message = message[:maxMessageLen]
	}
	return ImportProblem{
		RootServerID: rootServerID,
		Message:      message,
		RawRecord:    rawRecord,
	}
}
