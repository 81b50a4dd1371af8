package parser

import "time"

// SessionStatus values recorded in session metadata.
const (
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

// Session is the normalized record for one completed Amplifier
// session. It is produced by ParseSession, stored as-is, and never
// mutated after that; re-parsing a session with the same ID replaces
// the stored record wholesale.
type Session struct {
	// Identity
	SessionID   string
	ProjectPath string

	// Timing
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int

	// Counts
	TurnCount       int
	ToolCallCount   int
	DelegationCount int
	ErrorCount      int

	// Per-tool call counts, e.g. {"bash": 12, "read_file": 8}.
	ToolCounts map[string]int

	// Metadata
	ModelUsed string
	Status    string
}
