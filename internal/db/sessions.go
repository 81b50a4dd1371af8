package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ampdev/amplifier-insights/internal/parser"
	"github.com/ampdev/amplifier-insights/internal/timeutil"
)

// sessionCols is the column list for session queries. Keep in sync
// with scanSessionRow.
const sessionCols = `session_id, project_path, started_at, ended_at,
	duration_seconds, turn_count, tool_call_count,
	delegation_count, error_count, model_used, status`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, allowing a
// single scan helper for both.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSessionRow scans sessionCols into a Session. ToolCounts is
// left nil; callers attach it separately.
func scanSessionRow(rs rowScanner) (parser.Session, error) {
	var s parser.Session
	var startedAt, endedAt string
	err := rs.Scan(
		&s.SessionID, &s.ProjectPath, &startedAt, &endedAt,
		&s.DurationSeconds, &s.TurnCount, &s.ToolCallCount,
		&s.DelegationCount, &s.ErrorCount, &s.ModelUsed, &s.Status,
	)
	if err != nil {
		return s, err
	}
	s.StartedAt = timeutil.Parse(startedAt)
	s.EndedAt = timeutil.Parse(endedAt)
	return s, nil
}

// SaveSession inserts or replaces a session and its tool counts in
// one transaction. Re-saving with the same ID supersedes the stored
// record wholesale, including the session_tools child rows.
func (db *DB) SaveSession(s parser.Session) error {
	return db.Update(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO sessions (
				session_id, project_path, started_at, ended_at,
				duration_seconds, turn_count, tool_call_count,
				delegation_count, error_count, model_used, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.SessionID, s.ProjectPath,
			timeutil.Format(s.StartedAt), timeutil.Format(s.EndedAt),
			s.DurationSeconds, s.TurnCount, s.ToolCallCount,
			s.DelegationCount, s.ErrorCount, s.ModelUsed, s.Status)
		if err != nil {
			return fmt.Errorf("upserting session %s: %w", s.SessionID, err)
		}

		if _, err := tx.Exec(
			"DELETE FROM session_tools WHERE session_id = ?",
			s.SessionID,
		); err != nil {
			return fmt.Errorf("clearing tool counts for %s: %w", s.SessionID, err)
		}

		for toolName, count := range s.ToolCounts {
			if _, err := tx.Exec(`
				INSERT INTO session_tools (session_id, tool_name, call_count)
				VALUES (?, ?, ?)`,
				s.SessionID, toolName, count,
			); err != nil {
				return fmt.Errorf("inserting tool count %s/%s: %w",
					s.SessionID, toolName, err)
			}
		}
		return nil
	})
}

// GetSession returns a single session by ID, or nil when absent.
func (db *DB) GetSession(
	ctx context.Context, id string,
) (*parser.Session, error) {
	row := db.reader.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE session_id = ?", id)

	s, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}

	s.ToolCounts = make(map[string]int)
	rows, err := db.reader.QueryContext(ctx, `
		SELECT tool_name, call_count FROM session_tools
		WHERE session_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting tool counts for %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scanning tool count: %w", err)
		}
		s.ToolCounts[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionsInRange returns sessions whose start time falls in
// [start, end), ordered by start time, with tool counts attached.
func (db *DB) GetSessionsInRange(
	ctx context.Context, start, end time.Time,
) ([]parser.Session, error) {
	rows, err := db.reader.QueryContext(ctx,
		"SELECT "+sessionCols+` FROM sessions
		WHERE started_at >= ? AND started_at < ?
		ORDER BY started_at`,
		timeutil.Format(start), timeutil.Format(end))
	if err != nil {
		return nil, fmt.Errorf("querying sessions in range: %w", err)
	}
	defer rows.Close()

	var sessions []parser.Session
	index := make(map[string]int)
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.ToolCounts = make(map[string]int)
		index[s.SessionID] = len(sessions)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	toolRows, err := db.reader.QueryContext(ctx, `
		SELECT st.session_id, st.tool_name, st.call_count
		FROM session_tools st
		JOIN sessions s ON s.session_id = st.session_id
		WHERE s.started_at >= ? AND s.started_at < ?`,
		timeutil.Format(start), timeutil.Format(end))
	if err != nil {
		return nil, fmt.Errorf("querying tool counts in range: %w", err)
	}
	defer toolRows.Close()
	for toolRows.Next() {
		var id, name string
		var count int
		if err := toolRows.Scan(&id, &name, &count); err != nil {
			return nil, fmt.Errorf("scanning tool count: %w", err)
		}
		if i, ok := index[id]; ok {
			sessions[i].ToolCounts[name] = count
		}
	}
	return sessions, toolRows.Err()
}

// SessionExists reports whether a session ID is already stored.
func (db *DB) SessionExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.reader.QueryRowContext(ctx,
		"SELECT 1 FROM sessions WHERE session_id = ? LIMIT 1", id,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking session %s: %w", id, err)
	}
	return true, nil
}

// ToolCount pairs a tool name with its summed call count.
type ToolCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ToolUsageSummary returns per-tool call totals across all sessions,
// ordered by count descending then name for a deterministic ranking.
func (db *DB) ToolUsageSummary(ctx context.Context) ([]ToolCount, error) {
	rows, err := db.reader.QueryContext(ctx, `
		SELECT tool_name, SUM(call_count) AS total
		FROM session_tools
		GROUP BY tool_name
		ORDER BY total DESC, tool_name`)
	if err != nil {
		return nil, fmt.Errorf("querying tool usage summary: %w", err)
	}
	defer rows.Close()

	var out []ToolCount
	for rows.Next() {
		var tc ToolCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("scanning tool usage: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
