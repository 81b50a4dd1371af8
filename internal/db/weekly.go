package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ampdev/amplifier-insights/internal/metrics"
	"github.com/ampdev/amplifier-insights/internal/timeutil"
)

// SaveWeeklyMetrics inserts or replaces a weekly rollup, keyed by
// (user, week start). Idempotent: recomputing a week overwrites it.
func (db *DB) SaveWeeklyMetrics(m metrics.WeeklyMetrics) error {
	toolCounts, err := json.Marshal(m.ToolCounts)
	if err != nil {
		return fmt.Errorf("encoding tool counts: %w", err)
	}
	topTools, err := json.Marshal(m.Top5Tools)
	if err != nil {
		return fmt.Errorf("encoding top tools: %w", err)
	}

	return db.Update(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO weekly_metrics (
				user_id, week_start, session_count,
				total_duration_seconds, total_turns, total_tool_calls,
				total_delegations, total_errors,
				unique_tools, tool_counts, top_5_tools,
				avg_session_duration, avg_turns_per_session,
				delegation_ratio, error_rate,
				sessions_change_pct, tools_change_pct,
				delegation_change_pct, error_change_pct
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.UserID, timeutil.Format(m.WeekStart), m.SessionCount,
			m.TotalDurationSeconds, m.TotalTurns, m.TotalToolCalls,
			m.TotalDelegations, m.TotalErrors,
			m.UniqueTools, string(toolCounts), string(topTools),
			m.AvgSessionDuration, m.AvgTurnsPerSession,
			m.DelegationRatio, m.ErrorRate,
			nullable(m.SessionsChangePct), nullable(m.ToolsChangePct),
			nullable(m.DelegationChangePct), nullable(m.ErrorChangePct))
		if err != nil {
			return fmt.Errorf("upserting weekly metrics %s/%s: %w",
				m.UserID, timeutil.Format(m.WeekStart), err)
		}
		return nil
	})
}

// GetWeeklyMetrics returns the stored rollup for (user, weekStart),
// or nil when that week has not been computed. A missing week is the
// normal first-week state, not an error.
func (db *DB) GetWeeklyMetrics(
	ctx context.Context, userID string, weekStart time.Time,
) (*metrics.WeeklyMetrics, error) {
	row := db.reader.QueryRowContext(ctx, `
		SELECT user_id, week_start, session_count,
			total_duration_seconds, total_turns, total_tool_calls,
			total_delegations, total_errors,
			unique_tools, tool_counts, top_5_tools,
			avg_session_duration, avg_turns_per_session,
			delegation_ratio, error_rate,
			sessions_change_pct, tools_change_pct,
			delegation_change_pct, error_change_pct
		FROM weekly_metrics
		WHERE user_id = ? AND week_start = ?`,
		userID, timeutil.Format(weekStart))

	var m metrics.WeeklyMetrics
	var weekStartStr, toolCounts, topTools string
	var sessionsPct, toolsPct, delegationPct, errorPct sql.NullFloat64
	err := row.Scan(
		&m.UserID, &weekStartStr, &m.SessionCount,
		&m.TotalDurationSeconds, &m.TotalTurns, &m.TotalToolCalls,
		&m.TotalDelegations, &m.TotalErrors,
		&m.UniqueTools, &toolCounts, &topTools,
		&m.AvgSessionDuration, &m.AvgTurnsPerSession,
		&m.DelegationRatio, &m.ErrorRate,
		&sessionsPct, &toolsPct, &delegationPct, &errorPct,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting weekly metrics %s/%s: %w",
			userID, timeutil.Format(weekStart), err)
	}

	m.WeekStart = timeutil.Parse(weekStartStr)
	if err := json.Unmarshal([]byte(toolCounts), &m.ToolCounts); err != nil {
		return nil, fmt.Errorf("decoding tool counts: %w", err)
	}
	if err := json.Unmarshal([]byte(topTools), &m.Top5Tools); err != nil {
		return nil, fmt.Errorf("decoding top tools: %w", err)
	}
	m.SessionsChangePct = fromNull(sessionsPct)
	m.ToolsChangePct = fromNull(toolsPct)
	m.DelegationChangePct = fromNull(delegationPct)
	m.ErrorChangePct = fromNull(errorPct)
	return &m, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
