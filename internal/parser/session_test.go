package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ampdev/amplifier-insights/internal/testlogs"
)

func TestParseSessionBasic(t *testing.T) {
	root := t.TempDir()

	events := testlogs.JoinJSONL(
		testlogs.ToolEventJSON("bash", "sess-abc"),
		testlogs.ToolEventJSON("bash", "sess-abc"),
		testlogs.ToolEventJSON("read", "sess-abc"),
		testlogs.DelegationEventJSON("zen-architect", "sess-abc"),
		testlogs.ErrorEventJSON(),
	)
	transcript := testlogs.JoinJSONL(
		testlogs.TranscriptJSON("user", "2025-03-03T10:00:00Z"),
		testlogs.TranscriptJSON("assistant", "2025-03-03T10:05:00Z"),
		testlogs.TranscriptJSON("user", "2025-03-03T10:20:00Z"),
		testlogs.TranscriptJSON("assistant", "2025-03-03T10:30:00Z"),
	)
	metadata := testlogs.MetadataJSON("/home/user/myproj", "claude-sonnet", "completed")

	dir := testlogs.WriteSessionDir(
		t, root, "myproj", "dir-id", events, transcript, metadata,
	)

	s, err := ParseSession(dir)
	require.NoError(t, err)

	assert.Equal(t, "sess-abc", s.SessionID)
	assert.Equal(t, "/home/user/myproj", s.ProjectPath)
	assert.Equal(t, "claude-sonnet", s.ModelUsed)
	assert.Equal(t, StatusCompleted, s.Status)

	assert.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), s.StartedAt.UTC())
	assert.Equal(t, time.Date(2025, 3, 3, 10, 30, 0, 0, time.UTC), s.EndedAt.UTC())
	assert.Equal(t, 1800, s.DurationSeconds)
	assert.Equal(t, 2, s.TurnCount)

	assert.Equal(t, 4, s.ToolCallCount)
	assert.Equal(t, map[string]int{"bash": 2, "read": 1, "task": 1}, s.ToolCounts)
	assert.Equal(t, 1, s.DelegationCount)
	assert.Equal(t, 1, s.ErrorCount)
}

func TestParseSessionMalformedLinesSkipped(t *testing.T) {
	root := t.TempDir()

	events := testlogs.JoinJSONL(
		testlogs.ToolEventJSON("bash", "sess-1"),
		"{not valid json",
		"",
		testlogs.ToolEventJSON("read", "sess-1"),
	)
	transcript := testlogs.JoinJSONL(
		"garbage line",
		testlogs.TranscriptJSON("user", "2025-03-03T10:00:00Z"),
		testlogs.TranscriptJSON("user", "not-a-timestamp"),
	)

	dir := testlogs.WriteSessionDir(t, root, "p", "sess-1", events, transcript, "")

	s, err := ParseSession(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, s.ToolCallCount)
	// One valid timestamp and two user turns; the bad timestamp
	// still counts as a turn.
	assert.Equal(t, 2, s.TurnCount)
	assert.Equal(t, s.StartedAt, s.EndedAt)
	assert.Zero(t, s.DurationSeconds)
}

func TestParseSessionMissingEvents(t *testing.T) {
	root := t.TempDir()
	transcript := testlogs.JoinJSONL(
		testlogs.TranscriptJSON("user", "2025-03-03T10:00:00Z"),
	)
	dir := testlogs.WriteSessionDir(t, root, "p", "no-events", "", transcript, "")

	s, err := ParseSession(dir)
	require.NoError(t, err)

	// Session ID falls back to the directory name, project path to
	// the grandparent directory.
	assert.Equal(t, "no-events", s.SessionID)
	assert.Equal(t, filepath.Join(root, "p"), s.ProjectPath)
	assert.Zero(t, s.ToolCallCount)
	assert.Zero(t, s.DelegationCount)
	assert.Empty(t, s.ToolCounts)
}

func TestParseSessionMissingTranscript(t *testing.T) {
	root := t.TempDir()
	events := testlogs.JoinJSONL(testlogs.ToolEventJSON("bash", "sess-2"))
	dir := testlogs.WriteSessionDir(t, root, "p", "sess-2", events, "", "")

	before := time.Now()
	s, err := ParseSession(dir)
	require.NoError(t, err)

	// Time bounds fall back to the scan time.
	assert.False(t, s.StartedAt.Before(before))
	assert.Equal(t, s.StartedAt, s.EndedAt)
	assert.Zero(t, s.TurnCount)
}

func TestParseSessionMetadataDefaults(t *testing.T) {
	root := t.TempDir()
	dir := testlogs.WriteSessionDir(t, root, "p", "bare", "", "", "")

	s, err := ParseSession(dir)
	require.NoError(t, err)
	assert.Equal(t, "unknown", s.ModelUsed)
	assert.Equal(t, StatusCompleted, s.Status)
}

func TestParseSessionCorruptMetadata(t *testing.T) {
	root := t.TempDir()
	dir := testlogs.WriteSessionDir(t, root, "p", "bad-meta", "", "", "{broken")

	s, err := ParseSession(dir)
	require.NoError(t, err)
	assert.Equal(t, "unknown", s.ModelUsed)
	assert.Equal(t, StatusCompleted, s.Status)
}

func TestParseEventsToolNameFallback(t *testing.T) {
	root := t.TempDir()
	events := testlogs.JoinJSONL(`{"event":"tool:pre","data":{}}`)
	dir := testlogs.WriteSessionDir(t, root, "p", "s", events, "", "")

	s, err := ParseSession(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"unknown": 1}, s.ToolCounts)
}

func TestTaskWithoutAgentIsNotDelegation(t *testing.T) {
	root := t.TempDir()
	events := testlogs.JoinJSONL(
		`{"event":"tool:pre","data":{"tool_name":"task","tool_input":{"prompt":"do it"}}}`,
	)
	dir := testlogs.WriteSessionDir(t, root, "p", "s", events, "", "")

	s, err := ParseSession(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, s.ToolCounts["task"])
	assert.Zero(t, s.DelegationCount)
}

func TestParseSessionStatusErrorEvents(t *testing.T) {
	root := t.TempDir()
	events := testlogs.JoinJSONL(
		`{"event":"tool:post","status":"error"}`,
		`{"type":"error","message":"boom"}`,
		`{"event":"tool:post","status":"ok"}`,
	)
	dir := testlogs.WriteSessionDir(t, root, "p", "s", events, "", "")

	s, err := ParseSession(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, s.ErrorCount)
}

func TestFindSessions(t *testing.T) {
	root := t.TempDir()
	testlogs.WriteSessionDir(t, root, "proj-a", "s1", "", "", "")
	testlogs.WriteSessionDir(t, root, "proj-a", "s2", "", "", "")
	testlogs.WriteSessionDir(t, root, "proj-b", "s3", "", "", "")

	// A stray file next to the projects must be ignored.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "notes.txt"), []byte("x"), 0o644,
	))
	// A project without a sessions dir is skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proj-empty"), 0o755))

	dirs := FindSessions(root)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "proj-a", "sessions", "s1"),
		filepath.Join(root, "proj-a", "sessions", "s2"),
		filepath.Join(root, "proj-b", "sessions", "s3"),
	}, dirs)
}

func TestFindSessionsMissingRoot(t *testing.T) {
	dirs := FindSessions(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Empty(t, dirs)
}
