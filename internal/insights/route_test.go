package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteQuery(t *testing.T) {
	tests := []struct {
		query string
		want  QueryKind
	}{
		{"", QueryWeekly},
		{"weekly", QueryWeekly},
		{"summary", QueryWeekly},
		{"week", QueryWeekly},
		{"WEEKLY", QueryWeekly},
		{"  summary  ", QueryWeekly},

		{"tools", QueryTools},
		{"tool", QueryTools},
		{"show me my tools", QueryTools},
		{"which tool do I use most", QueryTools},

		{"growth", QueryGrowth},
		{"improve", QueryGrowth},
		{"progress", QueryGrowth},
		{"am I improving?", QueryGrowth},
		{"how is my growth looking", QueryGrowth},

		{"How am I doing?", QueryWeekly},
		{"tell me about my sessions", QueryWeekly},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteQuery(tt.query))
		})
	}
}

func TestRouteQueryUnbalancedQuotes(t *testing.T) {
	// shlex rejects the unbalanced quote; the fallback tokenizer
	// still finds the topic word.
	assert.Equal(t, QueryTools, RouteQuery(`what's my tool usage`))
}
