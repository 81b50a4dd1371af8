package db

import (
	"context"
	"fmt"
)

// Stats holds database-wide counters for the status command.
type Stats struct {
	SessionCount   int    `json:"session_count"`
	TotalToolCalls int    `json:"total_tool_calls"`
	UniqueTools    int    `json:"unique_tools"`
	FirstSession   string `json:"first_session"`
	LastSession    string `json:"last_session"`
}

// GetStats returns aggregate counters across all stored sessions.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COALESCE(SUM(call_count), 0) FROM session_tools),
			(SELECT COUNT(DISTINCT tool_name) FROM session_tools),
			(SELECT COALESCE(MIN(started_at), '') FROM sessions),
			(SELECT COALESCE(MAX(started_at), '') FROM sessions)`

	var s Stats
	err := db.reader.QueryRowContext(ctx, query).Scan(
		&s.SessionCount,
		&s.TotalToolCalls,
		&s.UniqueTools,
		&s.FirstSession,
		&s.LastSession,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	return s, nil
}
