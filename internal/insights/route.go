package insights

import (
	"strings"

	"github.com/google/shlex"
)

// QueryKind selects which report a show query maps to.
type QueryKind string

const (
	QueryWeekly QueryKind = "weekly"
	QueryTools  QueryKind = "tools"
	QueryGrowth QueryKind = "growth"
)

// RouteQuery maps a keyword or free-text query to a report kind.
// Exact keywords are matched first; otherwise the query is tokenized
// and scanned for topic words. Anything unrecognized falls back to
// the weekly summary.
func RouteQuery(query string) QueryKind {
	q := strings.ToLower(strings.TrimSpace(query))

	switch q {
	case "", "weekly", "summary", "week":
		return QueryWeekly
	case "tools", "tool":
		return QueryTools
	case "growth", "improve", "progress":
		return QueryGrowth
	}

	tokens, err := shlex.Split(q)
	if err != nil {
		tokens = strings.Fields(q)
	}
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "tool"):
			return QueryTools
		case strings.HasPrefix(tok, "grow"),
			strings.HasPrefix(tok, "improv"),
			strings.HasPrefix(tok, "progress"):
			return QueryGrowth
		}
	}
	return QueryWeekly
}
