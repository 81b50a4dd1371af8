package insights

import (
	"fmt"
	"strings"

	"github.com/ampdev/amplifier-insights/internal/metrics"
)

// maxTipsShown caps the tips rendered in a summary block.
const maxTipsShown = 3

// FormatSummary renders a Summary as a conversational text block:
// trend opener, this-week-vs-last-week bullets, top tools, up to
// three tips, and a trend footer.
func FormatSummary(s Summary) string {
	var lines []string

	switch s.Growth.Trend {
	case metrics.TrendImproving:
		lines = append(lines, "You're showing strong growth!", "")
	case metrics.TrendDeclining:
		lines = append(lines,
			"Let's look at your week and find opportunities to improve.", "")
	default:
		lines = append(lines, "Here's your weekly summary:", "")
	}

	m := s.Current
	lines = append(lines, "This Week vs Last Week:")
	lines = append(lines, fmt.Sprintf("  - %d sessions (%s)",
		m.SessionCount, changeString(m.SessionsChangePct)))
	lines = append(lines, fmt.Sprintf("  - %d different tools used",
		m.UniqueTools))
	lines = append(lines, fmt.Sprintf("  - Delegation ratio: %.0f%%",
		m.DelegationRatio*100))
	lines = append(lines, fmt.Sprintf("  - Error rate: %.0f%%",
		m.ErrorRate*100))
	lines = append(lines, fmt.Sprintf("  - Avg session duration: %.0fmin",
		m.AvgSessionDuration/60))
	lines = append(lines, "")

	if len(m.Top5Tools) > 0 {
		lines = append(lines, "Top Tools This Week:")
		for i, name := range m.Top5Tools {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, name))
		}
		lines = append(lines, "")
	}

	if len(s.Tips) > 0 {
		lines = append(lines, fmt.Sprintf(
			"%d tip(s) for improvement:", len(s.Tips)))
		shown := s.Tips
		if len(shown) > maxTipsShown {
			shown = shown[:maxTipsShown]
		}
		for _, tip := range shown {
			lines = append(lines, "")
			lines = append(lines, fmt.Sprintf("[%s] %s",
				strings.ToUpper(tip.Priority), tip.Category))
			lines = append(lines, "  "+tip.Observation)
			lines = append(lines, "  "+tip.Recommendation)
			lines = append(lines, "  "+tip.ExpectedBenefit)
		}
		lines = append(lines, "")
	}

	if s.Growth.Trend != metrics.TrendStable {
		lines = append(lines, "Overall trend: "+title(s.Growth.Trend))
	}

	return strings.Join(lines, "\n")
}

// FormatToolUsage renders the all-time tool usage breakdown.
func FormatToolUsage(r ToolUsageReport) string {
	var lines []string
	lines = append(lines, "Your Tool Usage:", "")
	lines = append(lines, fmt.Sprintf("Total tool calls: %d", r.TotalCalls))
	lines = append(lines, fmt.Sprintf("Unique tools: %d", r.UniqueTools))

	if len(r.TopTools) > 0 {
		lines = append(lines, "", "Top Tools:")
		top := r.TopTools
		if len(top) > 10 {
			top = top[:10]
		}
		for i, tc := range top {
			pct := 0.0
			if r.TotalCalls > 0 {
				pct = float64(tc.Count) / float64(r.TotalCalls) * 100
			}
			lines = append(lines, fmt.Sprintf("  %d. %s: %d calls (%.0f%%)",
				i+1, tc.Name, tc.Count, pct))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatGrowth renders the week-over-week growth report.
func FormatGrowth(r GrowthReport) string {
	var lines []string
	lines = append(lines, "Your Growth This Week:", "")
	lines = append(lines, fmt.Sprintf("Sessions: %d (was %d last week)",
		r.CurrentWeekSessions, r.PreviousWeekSessions))
	lines = append(lines, "Session growth: "+r.SessionsChange)
	lines = append(lines, "Delegation growth: "+r.DelegationChange)
	lines = append(lines, "Tool diversity growth: "+r.ToolsChange)
	lines = append(lines, "Error rate change: "+r.ErrorChange)
	lines = append(lines, "", "Overall trend: "+title(r.Trend))
	return strings.Join(lines, "\n")
}

// title upper-cases the first letter of an ASCII word.
func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
