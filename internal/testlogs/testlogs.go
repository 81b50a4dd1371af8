// Package testlogs provides shared fixture builders for Amplifier
// session log test data. Used by the parser, sync, and insights test
// packages.
package testlogs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ToolEventJSON returns a tool:pre event line as a JSON string.
func ToolEventJSON(toolName, sessionID string) string {
	m := map[string]any{
		"event": "tool:pre",
		"data": map[string]any{
			"tool_name": toolName,
		},
	}
	if sessionID != "" {
		m["session_id"] = sessionID
	}
	return mustMarshal(m)
}

// DelegationEventJSON returns a task tool:pre event with a named
// sub-agent as a JSON string.
func DelegationEventJSON(agent, sessionID string) string {
	m := map[string]any{
		"event": "tool:pre",
		"data": map[string]any{
			"tool_name": "task",
			"tool_input": map[string]any{
				"agent": agent,
			},
		},
	}
	if sessionID != "" {
		m["session_id"] = sessionID
	}
	return mustMarshal(m)
}

// ErrorEventJSON returns an error event line as a JSON string.
func ErrorEventJSON() string {
	return mustMarshal(map[string]any{"type": "error"})
}

// TranscriptJSON returns a transcript message line as a JSON string.
func TranscriptJSON(role, timestamp string) string {
	return mustMarshal(map[string]any{
		"role":      role,
		"timestamp": timestamp,
	})
}

// MetadataJSON returns a metadata.json document as a JSON string.
func MetadataJSON(projectPath, model, status string) string {
	m := map[string]any{}
	if projectPath != "" {
		m["project_path"] = projectPath
	}
	if model != "" {
		m["model_used"] = model
	}
	if status != "" {
		m["status"] = status
	}
	return mustMarshal(m)
}

// JoinJSONL joins lines with newlines and appends a trailing newline.
func JoinJSONL(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// WriteSessionDir creates <root>/<project>/sessions/<id>/ populated
// with the given file contents. Empty contents skip the file, which
// lets tests exercise missing-file fallbacks.
func WriteSessionDir(
	t *testing.T, root, project, id, events, transcript, metadata string,
) string {
	t.Helper()

	dir := filepath.Join(root, project, "sessions", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating session dir: %v", err)
	}

	write := func(name, content string) {
		if content == "" {
			return
		}
		if err := os.WriteFile(
			filepath.Join(dir, name), []byte(content), 0o644,
		); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	write("events.jsonl", events)
	write("transcript.jsonl", transcript)
	write("metadata.json", metadata)
	return dir
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
