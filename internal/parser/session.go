// Package parser extracts normalized Session records from Amplifier
// session directories. Each session directory holds an event log
// (events.jsonl), a transcript (transcript.jsonl), and metadata
// (metadata.json). Malformed lines and missing files are tolerated:
// the parser produces the best record it can rather than failing.
package parser

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	initialScanBufSize = 64 * 1024       // 64KB
	maxScanTokenSize   = 4 * 1024 * 1024 // 4MB
)

const (
	eventsFileName     = "events.jsonl"
	transcriptFileName = "transcript.jsonl"
	metadataFileName   = "metadata.json"
)

// delegationTool is the tool whose invocations with an "agent"
// parameter count as delegations to a sub-agent.
const delegationTool = "task"

// eventData holds the counters extracted from events.jsonl.
type eventData struct {
	toolCounts      map[string]int
	delegationCount int
	errorCount      int
	sessionID       string
}

// transcriptData holds timing and turn counts from transcript.jsonl.
type transcriptData struct {
	turnCount int
	startedAt time.Time
	endedAt   time.Time
}

// sessionMetadata holds the optional fields from metadata.json.
type sessionMetadata struct {
	projectPath string
	modelUsed   string
	status      string
}

// ParseSession parses a single session directory into a Session.
// The session ID comes from the event log when present, otherwise
// from the directory name. The project path comes from metadata,
// falling back to the grandparent directory (the project root in
// the <project>/sessions/<id> layout).
func ParseSession(sessionDir string) (Session, error) {
	events, err := parseEvents(filepath.Join(sessionDir, eventsFileName))
	if err != nil {
		return Session{}, fmt.Errorf("parsing events for %s: %w", sessionDir, err)
	}

	transcript, err := parseTranscript(filepath.Join(sessionDir, transcriptFileName))
	if err != nil {
		return Session{}, fmt.Errorf("parsing transcript for %s: %w", sessionDir, err)
	}

	meta := parseMetadata(filepath.Join(sessionDir, metadataFileName))

	sessionID := events.sessionID
	if sessionID == "" {
		sessionID = filepath.Base(sessionDir)
	}

	projectPath := meta.projectPath
	if projectPath == "" {
		projectPath = filepath.Dir(filepath.Dir(sessionDir))
	}

	totalCalls := 0
	for _, n := range events.toolCounts {
		totalCalls += n
	}

	return Session{
		SessionID:       sessionID,
		ProjectPath:     projectPath,
		StartedAt:       transcript.startedAt,
		EndedAt:         transcript.endedAt,
		DurationSeconds: int(transcript.endedAt.Sub(transcript.startedAt).Seconds()),
		TurnCount:       transcript.turnCount,
		ToolCallCount:   totalCalls,
		DelegationCount: events.delegationCount,
		ErrorCount:      events.errorCount,
		ToolCounts:      events.toolCounts,
		ModelUsed:       meta.modelUsed,
		Status:          meta.status,
	}, nil
}

// parseEvents scans events.jsonl for tool usage, delegations, and
// errors. A missing file yields empty counts.
func parseEvents(path string) (eventData, error) {
	data := eventData{toolCounts: make(map[string]int)}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, initialScanBufSize), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !gjson.Valid(line) {
			continue
		}

		if data.sessionID == "" {
			data.sessionID = gjson.Get(line, "session_id").Str
		}

		if gjson.Get(line, "event").Str == "tool:pre" {
			toolName := gjson.Get(line, "data.tool_name").Str
			if toolName == "" {
				toolName = "unknown"
			}
			data.toolCounts[toolName]++

			// A delegation is the task tool invoked with a named
			// sub-agent in its input.
			if toolName == delegationTool &&
				gjson.Get(line, "data.tool_input.agent").Exists() {
				data.delegationCount++
			}
		}

		if gjson.Get(line, "type").Str == "error" ||
			gjson.Get(line, "status").Str == "error" {
			data.errorCount++
		}
	}

	if err := scanner.Err(); err != nil {
		return data, fmt.Errorf("scanning %s: %w", path, err)
	}
	return data, nil
}

// parseTranscript scans transcript.jsonl for the session time bounds
// and user turn count. When the file is missing or carries no valid
// timestamps, both bounds fall back to the current time so the
// session still lands in the week it was scanned.
func parseTranscript(path string) (transcriptData, error) {
	var data transcriptData

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		now := time.Now()
		data.startedAt, data.endedAt = now, now
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, initialScanBufSize), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !gjson.Valid(line) {
			continue
		}

		if ts := parseTimestamp(gjson.Get(line, "timestamp").Str); !ts.IsZero() {
			if data.startedAt.IsZero() {
				data.startedAt = ts
			}
			data.endedAt = ts
		}

		if gjson.Get(line, "role").Str == "user" {
			data.turnCount++
		}
	}

	if err := scanner.Err(); err != nil {
		return data, fmt.Errorf("scanning %s: %w", path, err)
	}

	if data.startedAt.IsZero() || data.endedAt.IsZero() {
		now := time.Now()
		if data.startedAt.IsZero() {
			data.startedAt = now
		}
		if data.endedAt.IsZero() {
			data.endedAt = now
		}
	}
	return data, nil
}

// parseMetadata reads metadata.json. Missing or corrupt metadata
// degrades to defaults rather than failing the session.
func parseMetadata(path string) sessionMetadata {
	meta := sessionMetadata{modelUsed: "unknown", status: StatusCompleted}

	raw, err := os.ReadFile(path)
	if err != nil || !gjson.ValidBytes(raw) {
		return meta
	}

	if v := gjson.GetBytes(raw, "project_path").Str; v != "" {
		meta.projectPath = v
	}
	if v := gjson.GetBytes(raw, "model_used").Str; v != "" {
		meta.modelUsed = v
	}
	if v := gjson.GetBytes(raw, "status").Str; v != "" {
		meta.status = v
	}
	return meta
}

// parseTimestamp parses an RFC 3339 timestamp, tolerating both "Z"
// and explicit offsets. Returns the zero time on failure.
func parseTimestamp(s string) time.Time {
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
