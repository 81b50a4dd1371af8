// Package metrics is the pure aggregation core: it folds Session
// records into weekly rollups and computes week-over-week growth.
// It performs no I/O; callers fetch sessions and prior rollups from
// storage and pass them in.
package metrics

import (
	"sort"
	"time"

	"github.com/ampdev/amplifier-insights/internal/parser"
)

// DefaultUserID identifies the single local user. Rollups are keyed
// by (user, week start) so a future multi-user store needs no schema
// change.
const DefaultUserID = "local"

// Trend classifications produced by Growth.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// topToolCount is the number of tools kept in the Top5Tools ranking.
const topToolCount = 5

// WeeklyMetrics is the aggregated rollup for one (user, week) pair.
// All derived fields are pure functions of the summed counters and
// are recomputed on aggregation, never edited independently. Growth
// percentages are nil when no prior week rollup exists.
type WeeklyMetrics struct {
	// Identity
	UserID    string    `json:"user_id"`
	WeekStart time.Time `json:"week_start"` // Monday 00:00:00 local

	// Volume
	SessionCount         int `json:"session_count"`
	TotalDurationSeconds int `json:"total_duration_seconds"`
	TotalTurns           int `json:"total_turns"`
	TotalToolCalls       int `json:"total_tool_calls"`
	TotalDelegations     int `json:"total_delegations"`
	TotalErrors          int `json:"total_errors"`

	// Tool usage
	UniqueTools int            `json:"unique_tools"`
	ToolCounts  map[string]int `json:"tool_counts"`
	Top5Tools   []string       `json:"top_5_tools"`

	// Derived
	AvgSessionDuration float64 `json:"avg_session_duration"`
	AvgTurnsPerSession float64 `json:"avg_turns_per_session"`
	DelegationRatio    float64 `json:"delegation_ratio"` // delegations per session, may exceed 1
	ErrorRate          float64 `json:"error_rate"`       // errors / tool calls

	// Growth vs. previous week
	SessionsChangePct   *float64 `json:"sessions_change_pct"`
	ToolsChangePct      *float64 `json:"tools_change_pct"`
	DelegationChangePct *float64 `json:"delegation_change_pct"`
	ErrorChangePct      *float64 `json:"error_change_pct"`
}

// GrowthIndicators holds the week-over-week comparison results.
type GrowthIndicators struct {
	SessionsChangePct   *float64
	ToolsChangePct      *float64
	DelegationChangePct *float64
	ErrorChangePct      *float64
	Trend               string
}

// WeekStart returns Monday 00:00:00 in t's location for the week
// containing t.
func WeekStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(
		monday.Year(), monday.Month(), monday.Day(),
		0, 0, 0, 0, t.Location(),
	)
}

// Aggregate folds sessions into a WeeklyMetrics for the given week.
// Sessions are assumed pre-filtered to [weekStart, weekStart+7d);
// the store's range query does that. previous is the prior week's
// stored rollup, or nil when none exists.
func Aggregate(
	sessions []parser.Session,
	weekStart time.Time,
	previous *WeeklyMetrics,
) WeeklyMetrics {
	m := WeeklyMetrics{
		UserID:     DefaultUserID,
		WeekStart:  weekStart,
		ToolCounts: map[string]int{},
		Top5Tools:  []string{},
	}

	if len(sessions) == 0 {
		return m
	}

	m.SessionCount = len(sessions)
	for _, s := range sessions {
		m.TotalDurationSeconds += s.DurationSeconds
		m.TotalTurns += s.TurnCount
		m.TotalToolCalls += s.ToolCallCount
		m.TotalDelegations += s.DelegationCount
		m.TotalErrors += s.ErrorCount
	}

	m.ToolCounts, m.Top5Tools = mergeToolCounts(sessions)
	m.UniqueTools = len(m.ToolCounts)

	m.AvgSessionDuration = ratio(float64(m.TotalDurationSeconds), m.SessionCount)
	m.AvgTurnsPerSession = ratio(float64(m.TotalTurns), m.SessionCount)
	m.DelegationRatio = ratio(float64(m.TotalDelegations), m.SessionCount)
	m.ErrorRate = ratio(float64(m.TotalErrors), m.TotalToolCalls)

	growth := Growth(m, previous)
	m.SessionsChangePct = growth.SessionsChangePct
	m.ToolsChangePct = growth.ToolsChangePct
	m.DelegationChangePct = growth.DelegationChangePct
	m.ErrorChangePct = growth.ErrorChangePct

	return m
}

// mergeToolCounts sums per-session tool counts and derives the
// top-5 ranking. Ranking is a stable count-descending sort; ties
// keep first-seen order of the merge. Each session's keys are
// walked in sorted order so the merge order is reproducible across
// runs despite Go's randomized map iteration.
func mergeToolCounts(sessions []parser.Session) (map[string]int, []string) {
	counts := make(map[string]int)
	var order []string

	for _, s := range sessions {
		names := make([]string, 0, len(s.ToolCounts))
		for name := range s.ToolCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, seen := counts[name]; !seen {
				order = append(order, name)
			}
			counts[name] += s.ToolCounts[name]
		}
	}

	top := append([]string(nil), order...)
	sort.SliceStable(top, func(i, j int) bool {
		return counts[top[i]] > counts[top[j]]
	})
	if len(top) > topToolCount {
		top = top[:topToolCount]
	}
	if top == nil {
		top = []string{}
	}
	return counts, top
}

// Growth compares the current week against the previous one. With
// no previous week, all percentages are nil and the trend is stable.
func Growth(current WeeklyMetrics, previous *WeeklyMetrics) GrowthIndicators {
	if previous == nil {
		return GrowthIndicators{Trend: TrendStable}
	}

	sessionsChange := pctChange(
		float64(current.SessionCount), float64(previous.SessionCount),
	)
	toolsChange := pctChange(
		float64(current.UniqueTools), float64(previous.UniqueTools),
	)
	delegationChange := pctChange(current.DelegationRatio, previous.DelegationRatio)
	errorChange := pctChange(current.ErrorRate, previous.ErrorRate)

	// Four-point scoreboard. Only the session criterion uses the
	// percentage value; the others compare raw direction.
	score := 0
	if sessionsChange > 10 {
		score++
	}
	if current.DelegationRatio > previous.DelegationRatio {
		score++
	}
	if current.ErrorRate < previous.ErrorRate {
		score++
	}
	if current.UniqueTools > previous.UniqueTools {
		score++
	}

	trend := TrendStable
	switch {
	case score >= 3:
		trend = TrendImproving
	case score <= 1:
		trend = TrendDeclining
	}

	return GrowthIndicators{
		SessionsChangePct:   &sessionsChange,
		ToolsChangePct:      &toolsChange,
		DelegationChangePct: &delegationChange,
		ErrorChangePct:      &errorChange,
		Trend:               trend,
	}
}

// pctChange computes percent change with the zero-baseline rule:
// a zero previous value yields 100 when the current value is
// positive and 0 otherwise.
func pctChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return (current - previous) / previous * 100
}

// ratio divides, defining division by zero as 0.
func ratio(numerator float64, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / float64(denominator)
}
