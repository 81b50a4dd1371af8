// Package tips evaluates a fixed table of threshold rules against a
// weekly rollup and produces advisory coaching tips. Rules are pure:
// the only ambient input is the clock used to stamp generation time.
// Tips are never persisted; every query re-evaluates the rules.
package tips

import (
	"fmt"
	"sort"
	"time"

	"github.com/ampdev/amplifier-insights/internal/metrics"
)

// Tip priorities, ordered from most to least urgent.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Tip categories.
const (
	CategoryToolUsage      = "tool_usage"
	CategoryDelegation     = "delegation"
	CategoryErrorHandling  = "error_handling"
	CategoryTaskManagement = "task_management"
)

// Rule thresholds.
const (
	bashShareThreshold       = 0.30 // share of total tool calls
	delegationRatioThreshold = 0.3
	errorRateThreshold       = 0.15
	longSessionMinutes       = 60.0
)

// Tip is one fired rule's advisory output.
type Tip struct {
	RuleID   string `json:"rule_id"`
	Category string `json:"category"`
	Priority string `json:"priority"`

	Observation     string `json:"observation"`
	Recommendation  string `json:"recommendation"`
	ExpectedBenefit string `json:"expected_benefit"`

	GeneratedAt time.Time `json:"generated_at"`
	BasedOnWeek time.Time `json:"based_on_week"`
}

// ruleFunc evaluates one rule. It returns nil when the rule does not
// fire. previous is nil when no prior week rollup exists.
type ruleFunc func(
	current metrics.WeeklyMetrics,
	previous *metrics.WeeklyMetrics,
	now time.Time,
) *Tip

// rules is the fixed evaluation order. Priority sorting in Generate
// is stable, so this order also breaks priority ties.
var rules = []ruleFunc{
	ruleHighBashUsage,
	ruleLowDelegation,
	ruleHighErrorRate,
	ruleDecliningToolDiversity,
	ruleLongSessions,
}

var priorityRank = map[string]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Generate evaluates every rule against the current week and returns
// the fired tips sorted by priority (high first, ties in rule order).
// Between 0 and len(rules) tips are produced.
func Generate(
	current metrics.WeeklyMetrics, previous *metrics.WeeklyMetrics,
) []Tip {
	return generateAt(current, previous, time.Now())
}

func generateAt(
	current metrics.WeeklyMetrics,
	previous *metrics.WeeklyMetrics,
	now time.Time,
) []Tip {
	var out []Tip
	for _, rule := range rules {
		if tip := rule(current, previous, now); tip != nil {
			out = append(out, *tip)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, ok := priorityRank[out[i].Priority]
		if !ok {
			ri = len(priorityRank)
		}
		rj, ok := priorityRank[out[j].Priority]
		if !ok {
			rj = len(priorityRank)
		}
		return ri < rj
	})
	return out
}

// ruleHighBashUsage suggests specialized tools when bash dominates.
func ruleHighBashUsage(
	m metrics.WeeklyMetrics, _ *metrics.WeeklyMetrics, now time.Time,
) *Tip {
	if m.TotalToolCalls == 0 {
		return nil
	}

	bashCount := m.ToolCounts["bash"]
	bashShare := float64(bashCount) / float64(m.TotalToolCalls)
	if bashShare <= bashShareThreshold {
		return nil
	}

	return &Tip{
		RuleID:   "high_bash_usage",
		Category: CategoryToolUsage,
		Priority: PriorityMedium,
		Observation: fmt.Sprintf(
			"You use bash %.0f%% of the time (%d calls this week)",
			bashShare*100, bashCount,
		),
		Recommendation:  "Try using grep for searching files and glob for finding files instead of bash commands",
		ExpectedBenefit: "30% faster file operations with specialized tools",
		GeneratedAt:     now,
		BasedOnWeek:     m.WeekStart,
	}
}

// ruleLowDelegation suggests breaking problems down when delegation
// is low. The ratio is delegations per session yet the threshold is
// a 0-1 fraction; the unit mismatch is the defined behavior, see
// DESIGN.md.
func ruleLowDelegation(
	m metrics.WeeklyMetrics, _ *metrics.WeeklyMetrics, now time.Time,
) *Tip {
	if m.SessionCount == 0 {
		return nil
	}
	if m.DelegationRatio >= delegationRatioThreshold {
		return nil
	}

	return &Tip{
		RuleID:   "low_delegation",
		Category: CategoryDelegation,
		Priority: PriorityHigh,
		Observation: fmt.Sprintf(
			"Your delegation ratio is %.0f%% (%d delegations in %d sessions)",
			m.DelegationRatio*100, m.TotalDelegations, m.SessionCount,
		),
		Recommendation:  "Break down complex problems into smaller tasks and delegate to specialized agents",
		ExpectedBenefit: "Better results through specialized expertise and reduced cognitive load",
		GeneratedAt:     now,
		BasedOnWeek:     m.WeekStart,
	}
}

// ruleHighErrorRate suggests asking for alternatives when tool calls
// fail often.
func ruleHighErrorRate(
	m metrics.WeeklyMetrics, _ *metrics.WeeklyMetrics, now time.Time,
) *Tip {
	if m.TotalToolCalls == 0 {
		return nil
	}
	if m.ErrorRate <= errorRateThreshold {
		return nil
	}

	return &Tip{
		RuleID:   "high_error_rate",
		Category: CategoryErrorHandling,
		Priority: PriorityHigh,
		Observation: fmt.Sprintf(
			"Your error rate is %.0f%% (%d errors in %d tool calls)",
			m.ErrorRate*100, m.TotalErrors, m.TotalToolCalls,
		),
		Recommendation:  "When you hit errors, try asking for alternative approaches instead of retrying the same path",
		ExpectedBenefit: "Faster problem resolution and less frustration",
		GeneratedAt:     now,
		BasedOnWeek:     m.WeekStart,
	}
}

// ruleDecliningToolDiversity suggests exploring the toolkit when
// fewer distinct tools were used than last week.
func ruleDecliningToolDiversity(
	m metrics.WeeklyMetrics, previous *metrics.WeeklyMetrics, now time.Time,
) *Tip {
	if previous == nil || m.SessionCount == 0 {
		return nil
	}
	if m.UniqueTools >= previous.UniqueTools {
		return nil
	}

	decline := previous.UniqueTools - m.UniqueTools
	return &Tip{
		RuleID:   "declining_tool_diversity",
		Category: CategoryToolUsage,
		Priority: PriorityMedium,
		Observation: fmt.Sprintf(
			"You're using %d fewer tools this week (%d vs %d last week)",
			decline, m.UniqueTools, previous.UniqueTools,
		),
		Recommendation:  "Explore the full toolkit - try using tools you haven't used recently",
		ExpectedBenefit: "Increased effectiveness by choosing the right tool for each task",
		GeneratedAt:     now,
		BasedOnWeek:     m.WeekStart,
	}
}

// ruleLongSessions suggests smaller tasks when the average session
// runs past an hour.
func ruleLongSessions(
	m metrics.WeeklyMetrics, _ *metrics.WeeklyMetrics, now time.Time,
) *Tip {
	if m.SessionCount == 0 {
		return nil
	}

	avgMinutes := m.AvgSessionDuration / 60
	if avgMinutes <= longSessionMinutes {
		return nil
	}

	return &Tip{
		RuleID:   "long_sessions",
		Category: CategoryTaskManagement,
		Priority: PriorityMedium,
		Observation: fmt.Sprintf(
			"Your average session is %.0f minutes (%d sessions this week)",
			avgMinutes, m.SessionCount,
		),
		Recommendation:  "Break work into smaller, focused tasks for better concentration and faster iterations",
		ExpectedBenefit: "Better focus and more frequent completion milestones",
		GeneratedAt:     now,
		BasedOnWeek:     m.WeekStart,
	}
}
