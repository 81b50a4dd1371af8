// Package insights answers the query surface: weekly summaries, tool
// usage breakdowns, and growth reports. It orchestrates the store,
// the metrics core, and the tip rules, then renders conversational
// text. Rollups are computed on demand and persisted; tips are
// recomputed on every query.
package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/ampdev/amplifier-insights/internal/db"
	"github.com/ampdev/amplifier-insights/internal/metrics"
	"github.com/ampdev/amplifier-insights/internal/tips"
)

// Time ranges accepted by WeeklySummary.
const (
	RangeThisWeek = "this_week"
	RangeLastWeek = "last_week"
)

// areaDeclineThreshold marks a growth area as needing improvement
// when it declined by more than this many percent.
const areaDeclineThreshold = -5.0

// Engine is the query interface over the metrics store.
type Engine struct {
	db     *db.DB
	userID string
	now    func() time.Time
}

// NewEngine creates an Engine for the given user.
func NewEngine(database *db.DB, userID string) *Engine {
	if userID == "" {
		userID = metrics.DefaultUserID
	}
	return &Engine{db: database, userID: userID, now: time.Now}
}

// GrowthBlock summarizes the week-over-week trajectory.
type GrowthBlock struct {
	Trend          string   `json:"trend"`
	StrongestArea  string   `json:"strongest_area"`
	AreasToImprove []string `json:"areas_to_improve"`
}

// Summary is the structured weekly-summary response.
type Summary struct {
	SummaryLine string                 `json:"summary"`
	Current     metrics.WeeklyMetrics  `json:"current"`
	Previous    *metrics.WeeklyMetrics `json:"previous,omitempty"`
	Growth      GrowthBlock            `json:"growth"`
	Tips        []tips.Tip             `json:"tips"`
}

// ToolUsageReport is the all-time tool usage breakdown.
type ToolUsageReport struct {
	TotalCalls  int            `json:"total_calls"`
	UniqueTools int            `json:"unique_tools"`
	TopTools    []db.ToolCount `json:"top_tools"`
}

// GrowthReport compares the current week against the previous one
// with pre-formatted change strings.
type GrowthReport struct {
	CurrentWeekSessions  int    `json:"current_week_sessions"`
	PreviousWeekSessions int    `json:"previous_week_sessions"`
	SessionsChange       string `json:"sessions_change"`
	ToolsChange          string `json:"tools_change"`
	DelegationChange     string `json:"delegation_change"`
	ErrorChange          string `json:"error_change"`
	Trend                string `json:"trend"`
}

// WeeklySummary builds the summary for this_week or last_week.
// The week's rollup is loaded from storage, or computed from the
// session records and persisted when absent.
func (e *Engine) WeeklySummary(
	ctx context.Context, timeRange string,
) (Summary, error) {
	now := e.now()
	weekStart := metrics.WeekStart(now)
	if timeRange == RangeLastWeek {
		weekStart = weekStart.AddDate(0, 0, -7)
	}

	current, err := e.loadOrComputeWeek(ctx, weekStart)
	if err != nil {
		return Summary{}, err
	}
	previous, err := e.db.GetWeeklyMetrics(
		ctx, e.userID, weekStart.AddDate(0, 0, -7),
	)
	if err != nil {
		return Summary{}, err
	}

	growth := refreshGrowth(&current, previous)
	strongest, improve := growthAreas(current, previous)

	return Summary{
		SummaryLine: summaryLine(current),
		Current:     current,
		Previous:    previous,
		Growth: GrowthBlock{
			Trend:          growth.Trend,
			StrongestArea:  strongest,
			AreasToImprove: improve,
		},
		Tips: tips.Generate(current, previous),
	}, nil
}

// ToolUsage returns the all-time tool usage breakdown.
func (e *Engine) ToolUsage(ctx context.Context) (ToolUsageReport, error) {
	toolCounts, err := e.db.ToolUsageSummary(ctx)
	if err != nil {
		return ToolUsageReport{}, err
	}

	report := ToolUsageReport{
		UniqueTools: len(toolCounts),
		TopTools:    toolCounts,
	}
	for _, tc := range toolCounts {
		report.TotalCalls += tc.Count
	}
	return report, nil
}

// GrowthReport compares the current week to the previous week.
func (e *Engine) Growth(ctx context.Context) (GrowthReport, error) {
	weekStart := metrics.WeekStart(e.now())

	current, err := e.loadOrComputeWeek(ctx, weekStart)
	if err != nil {
		return GrowthReport{}, err
	}
	previous, err := e.db.GetWeeklyMetrics(
		ctx, e.userID, weekStart.AddDate(0, 0, -7),
	)
	if err != nil {
		return GrowthReport{}, err
	}

	growth := refreshGrowth(&current, previous)
	report := GrowthReport{
		CurrentWeekSessions: current.SessionCount,
		SessionsChange:      changeString(current.SessionsChangePct),
		ToolsChange:         changeString(current.ToolsChangePct),
		DelegationChange:    changeString(current.DelegationChangePct),
		ErrorChange:         changeString(current.ErrorChangePct),
		Trend:               growth.Trend,
	}
	if previous != nil {
		report.PreviousWeekSessions = previous.SessionCount
	}
	return report, nil
}

// loadOrComputeWeek returns the stored rollup for weekStart,
// computing and persisting it from session records when absent.
func (e *Engine) loadOrComputeWeek(
	ctx context.Context, weekStart time.Time,
) (metrics.WeeklyMetrics, error) {
	stored, err := e.db.GetWeeklyMetrics(ctx, e.userID, weekStart)
	if err != nil {
		return metrics.WeeklyMetrics{}, err
	}
	if stored != nil {
		return *stored, nil
	}

	sessions, err := e.db.GetSessionsInRange(
		ctx, weekStart, weekStart.AddDate(0, 0, 7),
	)
	if err != nil {
		return metrics.WeeklyMetrics{}, err
	}
	previous, err := e.db.GetWeeklyMetrics(
		ctx, e.userID, weekStart.AddDate(0, 0, -7),
	)
	if err != nil {
		return metrics.WeeklyMetrics{}, err
	}

	m := metrics.Aggregate(sessions, weekStart, previous)
	m.UserID = e.userID
	if err := e.db.SaveWeeklyMetrics(m); err != nil {
		return metrics.WeeklyMetrics{}, err
	}
	return m, nil
}

// refreshGrowth recomputes the growth comparison against the previous
// rollup and writes the percentages back into current. A week's stored
// rollup can predate its previous week (it was computed on a fresh
// database, then the earlier week landed later); without this the
// report would pair stale nil percentages with a live trend.
func refreshGrowth(
	current *metrics.WeeklyMetrics, previous *metrics.WeeklyMetrics,
) metrics.GrowthIndicators {
	growth := metrics.Growth(*current, previous)
	if previous != nil {
		current.SessionsChangePct = growth.SessionsChangePct
		current.ToolsChangePct = growth.ToolsChangePct
		current.DelegationChangePct = growth.DelegationChangePct
		current.ErrorChangePct = growth.ErrorChangePct
	}
	return growth
}

// summaryLine builds the one-line session summary, e.g.
// "12 sessions this week, up 50% from last week".
func summaryLine(m metrics.WeeklyMetrics) string {
	line := fmt.Sprintf("%d sessions this week", m.SessionCount)
	if m.SessionsChangePct == nil {
		return line
	}
	change := *m.SessionsChangePct
	switch {
	case change > 0:
		return fmt.Sprintf("%s, up %.0f%% from last week", line, change)
	case change < 0:
		return fmt.Sprintf("%s, down %.0f%% from last week", line, -change)
	default:
		return line + ", same as last week"
	}
}

// growthAreas ranks delegation, tool diversity, and error handling
// by their change percentage. Error handling is negated because
// fewer errors is better. The strongest area is the highest score;
// areas declining past the threshold need improvement.
func growthAreas(
	current metrics.WeeklyMetrics, previous *metrics.WeeklyMetrics,
) (strongest string, improve []string) {
	if previous == nil {
		return "unknown", nil
	}

	areas := []struct {
		name  string
		score float64
	}{
		{"delegation", deref(current.DelegationChangePct)},
		{"tool_diversity", deref(current.ToolsChangePct)},
		{"error_handling", -deref(current.ErrorChangePct)},
	}

	strongest = areas[0].name
	best := areas[0].score
	for _, a := range areas[1:] {
		if a.score > best {
			strongest = a.name
			best = a.score
		}
	}
	for _, a := range areas {
		if a.score < areaDeclineThreshold {
			improve = append(improve, a.name)
		}
	}
	return strongest, improve
}

// changeString formats a growth percentage as "+15%" or "N/A" when
// no prior week exists.
func changeString(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%+.0f%%", *p)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
