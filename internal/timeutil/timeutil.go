// Package timeutil provides timestamp formatting helpers shared by
// the storage and sync layers. Timestamps are stored as RFC 3339
// strings in UTC so lexicographic comparison matches chronological
// order in SQL range queries.
package timeutil

import "time"

// Format returns t as an RFC 3339 UTC string, or "" for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Parse converts a stored RFC 3339 string back into a time.Time.
// Returns the zero time for "" or unparseable input.
func Parse(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
